package bus

import (
	"context"

	"github.com/jomapps/aladdin-sub006/internal/realtime"
)

// Bus fans SSE messages across processes so a run executing on one
// instance reaches clients streaming from another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
