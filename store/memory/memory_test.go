package memory_test

import (
	"testing"

	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/store/memory"
	"github.com/warp/slot-engine/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		return memory.New()
	})
}
