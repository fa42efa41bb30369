// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/accelerometer_bridge/internal/platform"
)

// ReadFunc reads one sample from a device.
type ReadFunc func() (platform.RawEvent, error)

// Poller turns a pull-style device into a push-style sensor service. Each
// registered listener gets its own goroutine which reads at the tier
// interval and delivers events serially, in read order.
type Poller struct {
	read ReadFunc
	log  zerolog.Logger

	mu   sync.Mutex
	subs map[platform.Listener]*subscription
}

type subscription struct {
	stop chan struct{}
	done chan struct{}
}

func NewPoller(read ReadFunc, log zerolog.Logger) *Poller {
	return &Poller{
		read: read,
		log:  log,
		subs: make(map[platform.Listener]*subscription),
	}
}

// Register starts delivery to l. A listener can only be registered once.
func (p *Poller) Register(l platform.Listener, rate platform.RateTier) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subs[l]; ok {
		return fmt.Errorf("%w: listener already registered", platform.ErrRegistrationRefused)
	}

	sub := &subscription{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	p.subs[l] = sub
	go p.run(l, rate.Interval(), sub)

	p.log.Debug().Str("rate", rate.String()).Msg("listener registered")
	return nil
}

// Unregister stops delivery to l. It returns once no further event will be
// delivered to l.
func (p *Poller) Unregister(l platform.Listener) error {
	p.mu.Lock()
	sub, ok := p.subs[l]
	if ok {
		delete(p.subs, l)
	}
	p.mu.Unlock()

	if !ok {
		return platform.ErrNotRegistered
	}

	close(sub.stop)
	<-sub.done
	p.log.Debug().Msg("listener unregistered")
	return nil
}

// Close stops every delivery loop.
func (p *Poller) Close() {
	p.mu.Lock()
	subs := p.subs
	p.subs = make(map[platform.Listener]*subscription)
	p.mu.Unlock()

	for _, sub := range subs {
		close(sub.stop)
		<-sub.done
	}
}

// Len returns the number of registered listeners.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Poller) run(l platform.Listener, interval time.Duration, sub *subscription) {
	defer close(sub.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.stop:
			return
		case <-ticker.C:
			ev, err := p.read()
			if err != nil {
				p.log.Error().Err(err).Msg("sensor read failed")
				continue
			}
			// stop may have been closed while reading
			select {
			case <-sub.stop:
				return
			default:
			}
			l.OnSensorChanged(ev)
		}
	}
}
