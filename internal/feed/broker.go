// Package feed fans prospect change notifications out to live subscribers.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

// Loader returns the full current prospect set of a user.
type Loader func(ctx context.Context, userID string) ([]*model.Prospect, error)

const loadTimeout = 10 * time.Second

// Broker delivers a user's full prospect set to every subscriber of that user,
// once on subscribe and again after each Notify. Notifications that arrive
// while a reload is running coalesce into one further reload.
type Broker struct {
	load Loader

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	userID   string
	onChange func([]*model.Prospect)
	onError  func(error)

	wake     chan struct{}
	done     chan struct{}
	exit     chan struct{}
	stopOnce sync.Once
}

// NewBroker creates a broker that reads snapshots through load.
func NewBroker(load Loader) *Broker {
	return &Broker{load: load, subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers callbacks for userID. Callbacks run on a goroutine owned
// by the subscription and never concurrently with each other. The returned
// function stops delivery and waits for an in-flight callback to finish; it is
// safe to call more than once.
func (b *Broker) Subscribe(userID string, onChange func([]*model.Prospect), onError func(error)) (unsubscribe func()) {
	s := &subscriber{
		userID:   userID,
		onChange: onChange,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		exit:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	s.wake <- struct{}{}
	go b.run(s)

	return func() {
		b.remove(s)
		s.stop()
	}
}

// Notify schedules a reload for every subscriber of userID. An empty userID
// reloads all subscribers, which is used after the change source reconnects.
func (b *Broker) Notify(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if userID == "" {
		for _, set := range b.subs {
			for s := range set {
				s.signal()
			}
		}
		return
	}
	for s := range b.subs[userID] {
		s.signal()
	}
}

// Subscribers reports how many subscriptions userID currently has.
func (b *Broker) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// Close stops every subscription. Later Subscribe calls return a no-op.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*subscriber
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.subs = make(map[string]map[*subscriber]struct{})
	b.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
}

func (b *Broker) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, s.userID)
		}
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.exit
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (b *Broker) run(s *subscriber) {
	defer close(s.exit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		loadCtx, cancelLoad := context.WithTimeout(ctx, loadTimeout)
		prospects, err := b.load(loadCtx, s.userID)
		cancelLoad()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("feed reload failed", "user_id", s.userID, "error", err)
			if s.onError != nil {
				s.onError(err)
			}
			continue
		}
		if s.onChange != nil {
			s.onChange(prospects)
		}
	}
}
