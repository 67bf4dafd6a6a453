package services

import (
	"context"

	"github.com/jomapps/aladdin-sub006/internal/realtime"
	"github.com/jomapps/aladdin-sub006/internal/realtime/bus"
)

// SSEEmitter is where outbound realtime messages enter the delivery
// path. Single-instance deployments emit straight into the hub; multi
// instance deployments emit into the redis bus and let each instance's
// forwarder feed its own hub.
type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}
