package observability

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// FlushTelemetry syncs buffered log entries before exit. Metrics are scraped, so
// there is nothing to push. Call last in shutdown, after the server has drained
// and the report publisher is closed.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil && !unsyncableStream(err) {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

// unsyncableStream matches the errors fsync returns for terminals and pipes,
// which is where stderr usually points.
func unsyncableStream(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}
