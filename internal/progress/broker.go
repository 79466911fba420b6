package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// subscriberBuffer sizes each subscriber channel. A subscriber that
// falls further behind than this loses intermediate events; the latest
// snapshot is always retrievable.
const subscriberBuffer = 16

// Sink receives every published event, typically to mirror it onto an
// external bus.
type Sink interface {
	Publish(ev Event) error
}

// Broker is the in-process event hub. Publishing never blocks on slow
// subscribers.
type Broker struct {
	sink Sink

	mu     sync.RWMutex
	latest map[string]Event
	subs   map[string]map[chan Event]struct{}
}

func NewBroker(sink Sink) *Broker {
	return &Broker{
		sink:   sink,
		latest: make(map[string]Event),
		subs:   make(map[string]map[chan Event]struct{}),
	}
}

// Publish records ev as the job's latest state and fans it out. A full
// subscriber channel is skipped rather than waited on.
func (b *Broker) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.latest[ev.JobID] = ev
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()

	if b.sink != nil {
		if err := b.sink.Publish(ev); err != nil {
			zap.L().Warn("progress sink publish failed",
				zap.String("job_id", ev.JobID),
				zap.String("stage", ev.Stage),
				zap.Error(err))
		}
	}
}

// Subscribe returns a channel of events for jobID and a cancel func.
// The job's latest event, if any, is delivered first so late joiners
// see current state immediately.
func (b *Broker) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[chan Event]struct{})
	}
	b.subs[jobID][ch] = struct{}{}
	if ev, ok := b.latest[jobID]; ok {
		ch <- ev
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[jobID]; ok {
			if _, member := set[ch]; member {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(b.subs, jobID)
				}
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Latest returns the last event published for jobID.
func (b *Broker) Latest(jobID string) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev, ok := b.latest[jobID]
	return ev, ok
}

// Forget drops the job's stored state. Live subscribers keep their
// channels until they cancel.
func (b *Broker) Forget(jobID string) {
	b.mu.Lock()
	delete(b.latest, jobID)
	b.mu.Unlock()
}
