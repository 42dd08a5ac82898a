//go:build windows

package watch

import (
	"context"

	"github.com/gazeguard/gazeguard-go/internal/pipeline"
)

// notifyPauseSignals is a no-op on Windows, which has no user signals.
func notifyPauseSignals(context.Context, *pipeline.Pipeline) {}
