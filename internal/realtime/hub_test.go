package realtime

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/FernandoPintoL/plataforma-educativa-sub011/internal/domain/monitoring"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

type fakeBus struct {
	mu    sync.Mutex
	snaps []types.RiskSnapshot
}

func (b *fakeBus) Publish(_ context.Context, snap types.RiskSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = append(b.snaps, snap)
	return nil
}

func (b *fakeBus) StartForwarder(context.Context, func(types.RiskSnapshot)) error { return nil }

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snaps)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub(nil, testLogger(t))
	var got []float64
	hub.Subscribe(func(_ context.Context, snap types.RiskSnapshot) error {
		got = append(got, snap.Score)
		return nil
	})

	for _, score := range []float64{0.1, 0.5, 0.9} {
		hub.Publish(context.Background(), types.RiskSnapshot{AttemptID: uuid.New(), Score: score})
	}
	if len(got) != 3 || got[0] != 0.1 || got[1] != 0.5 || got[2] != 0.9 {
		t.Fatalf("delivery order broken: %v", got)
	}
}

func TestHubFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(nil, testLogger(t))
	hub.Subscribe(func(_ context.Context, _ types.RiskSnapshot) error {
		return fmt.Errorf("boom")
	})
	delivered := false
	hub.Subscribe(func(_ context.Context, _ types.RiskSnapshot) error {
		delivered = true
		return nil
	})

	hub.Publish(context.Background(), types.RiskSnapshot{AttemptID: uuid.New()})
	if !delivered {
		t.Fatalf("second subscriber starved by failing first subscriber")
	}
}

func TestPublishWritesToBusOffCaller(t *testing.T) {
	bus := &fakeBus{}
	hub := NewHub(bus, testLogger(t))
	defer hub.Close()

	hub.Publish(context.Background(), types.RiskSnapshot{AttemptID: uuid.New(), Score: 0.4})

	deadline := time.Now().Add(2 * time.Second)
	for bus.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never reached the bus")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatchLocalDoesNotRepublishToBus(t *testing.T) {
	bus := &fakeBus{}
	hub := NewHub(bus, testLogger(t))
	defer hub.Close()

	delivered := 0
	hub.Subscribe(func(_ context.Context, _ types.RiskSnapshot) error {
		delivered++
		return nil
	})

	hub.DispatchLocal(context.Background(), types.RiskSnapshot{AttemptID: uuid.New()})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	time.Sleep(50 * time.Millisecond)
	if bus.count() != 0 {
		t.Fatalf("forwarded snapshot was re-published to the bus")
	}
}
