package shutdown

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// ExitFunc is replaced in tests so Shutdown does not kill the test binary.
var ExitFunc = os.Exit

var (
	mu    sync.Mutex
	hooks []func()
)

// RegisterSafeState adds a hook that drives hardware to a safe state before exit.
// Hooks run in reverse registration order.
func RegisterSafeState(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, fn)
}

// Reset drops all registered hooks.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	hooks = nil
}

func runHooks() {
	mu.Lock()
	pending := make([]func(), len(hooks))
	copy(pending, hooks)
	mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

func Shutdown() {
	runHooks()
	log.Info().Msg("Outputs driven to safe state")
	ExitFunc(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	runHooks()
	ExitFunc(1)
}
