package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry syncs buffered logs before exit. Metrics are pull-based and need no flush.
// Returns ctx.Err() if the context is already done.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}
