package graceful

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func MakeSigintChan() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

// CancelOnSignal blocks until SIGINT or SIGTERM arrives, then calls cancel. It returns early when
// ctx ends first.
func CancelOnSignal(ctx context.Context, cancel context.CancelFunc, logger logrus.FieldLogger) {
	sigCh := MakeSigintChan()
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Infof("received exit signal: %v", sig)
		cancel()
	case <-ctx.Done():
	}
}
