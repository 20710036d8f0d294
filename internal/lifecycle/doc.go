// Package lifecycle decides how users move between the lifecycle collections.
//
// Every function is pure: inputs are never modified and the current time is
// always passed in by the caller.
package lifecycle
