package sensors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

type collector struct {
	mu     sync.Mutex
	events []platform.RawEvent
	got    chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 1024)}
}

func (c *collector) OnSensorChanged(ev platform.RawEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) snapshot() []platform.RawEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]platform.RawEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *collector) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d", n, i)
		}
	}
}

func counterRead() ReadFunc {
	var mu sync.Mutex
	n := 0.0
	return func() (platform.RawEvent, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return platform.RawEvent{Type: platform.TypeAccelerometer, Values: [3]float64{n, n, n}}, nil
	}
}

func TestPollerDeliversInReadOrder(t *testing.T) {
	is := is.New(t)
	p := NewPoller(counterRead(), zerolog.Nop())
	c := newCollector()

	is.NoErr(p.Register(c, platform.RateFastest))
	c.waitFor(t, 5)
	is.NoErr(p.Unregister(c))

	events := c.snapshot()
	for i := 1; i < len(events); i++ {
		is.True(events[i].Values[0] > events[i-1].Values[0]) // strictly increasing
	}
}

func TestPollerRefusesDoubleRegistration(t *testing.T) {
	is := is.New(t)
	p := NewPoller(counterRead(), zerolog.Nop())
	defer p.Close()
	c := newCollector()

	is.NoErr(p.Register(c, platform.RateGame))
	err := p.Register(c, platform.RateGame)
	is.True(errors.Is(err, platform.ErrRegistrationRefused))
	is.Equal(p.Len(), 1)
}

func TestPollerUnregisterUnknownListener(t *testing.T) {
	is := is.New(t)
	p := NewPoller(counterRead(), zerolog.Nop())

	err := p.Unregister(newCollector())
	is.True(errors.Is(err, platform.ErrNotRegistered))
}

func TestPollerStopsDeliveringAfterUnregister(t *testing.T) {
	is := is.New(t)
	p := NewPoller(counterRead(), zerolog.Nop())
	c := newCollector()

	is.NoErr(p.Register(c, platform.RateFastest))
	c.waitFor(t, 2)
	is.NoErr(p.Unregister(c))

	n := len(c.snapshot())
	time.Sleep(20 * time.Millisecond)
	is.Equal(len(c.snapshot()), n) // nothing delivered after unregister returned
}

func TestPollerSkipsFailedReads(t *testing.T) {
	is := is.New(t)
	calls := 0
	p := NewPoller(func() (platform.RawEvent, error) {
		calls++
		if calls%2 == 1 {
			return platform.RawEvent{}, errors.New("bus timeout")
		}
		return platform.RawEvent{Type: platform.TypeAccelerometer}, nil
	}, zerolog.Nop())
	c := newCollector()

	is.NoErr(p.Register(c, platform.RateFastest))
	c.waitFor(t, 2)
	p.Close()

	is.Equal(p.Len(), 0)
}
