package lockcheck

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuard_AllowsSequentialEnterExit(t *testing.T) {
	g := New()
	g.Enter()
	g.Exit()
	g.Enter()
	g.Exit()
}

func TestGuard_PanicsOnReentry(t *testing.T) {
	g := New()
	g.Enter()
	defer g.Exit()

	require.Panics(t, func() {
		g.Enter()
	})
}

func TestGuard_AllowsDifferentGoroutinesConcurrently(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Enter()
			g.Exit()
		}()
	}
	wg.Wait()
}
