//go:build !unix

package lock

import "os"

// Advisory locks are only taken on unix systems.
func lockFile(*os.File) error {
	return nil
}

func unlockFile(*os.File) error {
	return nil
}
