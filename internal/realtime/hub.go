package realtime

import (
	"context"
	"sync"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// Subscriber consumes risk snapshots. Subscribers run synchronously and in
// registration order, so for a single attempt every consumer observes
// snapshots in the order they were computed.
type Subscriber func(ctx context.Context, snap types.RiskSnapshot) error

const busQueueSize = 256

// Hub fans risk snapshots out to in-process subscribers and, when a bus is
// attached, to other instances over Redis. A subscriber error is logged and
// never blocks the remaining subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	bus         Bus
	busQueue    chan types.RiskSnapshot
	closeOnce   sync.Once
	log         *logger.Logger
}

func NewHub(bus Bus, baseLog *logger.Logger) *Hub {
	h := &Hub{bus: bus, log: baseLog.With("service", "SnapshotHub")}
	if bus != nil {
		h.busQueue = make(chan types.RiskSnapshot, busQueueSize)
		go h.drainBusQueue()
	}
	return h
}

func (h *Hub) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.subscribers = append(h.subscribers, sub)
	h.mu.Unlock()
}

// Publish delivers the snapshot to every subscriber, then queues it for the
// cross-instance bus. The bus write runs off the calling goroutine so event
// ingestion never waits on the network; when the queue is full the snapshot
// is dropped from the bus, not from local subscribers.
func (h *Hub) Publish(ctx context.Context, snap types.RiskSnapshot) {
	h.deliver(ctx, snap)

	if h.busQueue == nil {
		return
	}
	select {
	case h.busQueue <- snap:
	default:
		h.log.Warn("snapshot bus queue full, dropping", "attempt_id", snap.AttemptID)
	}
}

// DispatchLocal delivers a snapshot received from the cross-instance bus to
// local subscribers without re-publishing it, so forwarded snapshots cannot
// loop between instances.
func (h *Hub) DispatchLocal(ctx context.Context, snap types.RiskSnapshot) {
	h.deliver(ctx, snap)
}

// Close stops the bus drain goroutine. Snapshots already queued are still
// written out before it exits.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		if h.busQueue != nil {
			close(h.busQueue)
		}
	})
}

func (h *Hub) deliver(ctx context.Context, snap types.RiskSnapshot) {
	h.mu.RLock()
	subs := h.subscribers
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub(ctx, snap); err != nil {
			h.log.Error("snapshot subscriber failed",
				"attempt_id", snap.AttemptID, "level", snap.Level, "error", err)
		}
	}
}

func (h *Hub) drainBusQueue() {
	for snap := range h.busQueue {
		if err := h.bus.Publish(context.Background(), snap); err != nil {
			h.log.Warn("snapshot bus publish failed",
				"attempt_id", snap.AttemptID, "error", err)
		}
	}
}
