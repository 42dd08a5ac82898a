//go:build unix

package watch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gazeguard/gazeguard-go/internal/pipeline"
)

// notifyPauseSignals maps SIGUSR1 to pause and SIGUSR2 to resume.
func notifyPauseSignals(ctx context.Context, p *pipeline.Pipeline) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				if sig == syscall.SIGUSR1 {
					p.Pause()
				} else {
					p.Resume()
				}
			}
		}
	}()
}
