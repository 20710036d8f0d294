package memory_test

import (
	"testing"

	"github.com/robalyx/followbot/internal/store"
	"github.com/robalyx/followbot/internal/store/memory"
	"github.com/robalyx/followbot/internal/store/storetest"
)

func TestBackend(t *testing.T) {
	t.Parallel()

	storetest.RunBackendTests(t, func(_ *testing.T) store.Backend {
		return memory.New()
	})
}
