package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/huykn/teamup-client/types"
	"github.com/redis/go-redis/v9"
)

// InvalidationEvent is an alias for types.InvalidationEvent
type InvalidationEvent = types.InvalidationEvent

// ErrClosed is returned when publishing on a closed synchronizer.
var ErrClosed = errors.New("synchronizer is closed")

// PubSubSynchronizer implements cache synchronization using Redis Pub/Sub.
type PubSubSynchronizer struct {
	client         *redis.Client
	channel        string
	clientID       string
	pubsub         *redis.PubSub
	callbacks      []func(event InvalidationEvent)
	callbacksMutex sync.RWMutex
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup
}

// NewPubSubSynchronizer creates a new Pub/Sub synchronizer.
func NewPubSubSynchronizer(client *redis.Client, channel, clientID string) *PubSubSynchronizer {
	return &PubSubSynchronizer{
		client:    client,
		channel:   channel,
		clientID:  clientID,
		callbacks: make([]func(event InvalidationEvent), 0),
		done:      make(chan struct{}),
	}
}

// Subscribe starts listening for invalidation events.
func (ps *PubSubSynchronizer) Subscribe(ctx context.Context) error {
	ps.pubsub = ps.client.Subscribe(ctx, ps.channel)

	// Wait for the subscription confirmation so that events published right
	// after New are not lost.
	if _, err := ps.pubsub.Receive(ctx); err != nil {
		ps.pubsub.Close()
		ps.pubsub = nil
		return err
	}

	ps.wg.Add(1)
	go ps.listenForEvents()

	return nil
}

// Publish publishes an invalidation event.
func (ps *PubSubSynchronizer) Publish(ctx context.Context, event InvalidationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return ps.client.Publish(ctx, ps.channel, string(data)).Err()
}

// OnInvalidate registers a callback for invalidation events.
func (ps *PubSubSynchronizer) OnInvalidate(callback func(event InvalidationEvent)) {
	ps.callbacksMutex.Lock()
	defer ps.callbacksMutex.Unlock()
	ps.callbacks = append(ps.callbacks, callback)
}

// Close closes the synchronizer.
func (ps *PubSubSynchronizer) Close() error {
	var err error
	ps.closeOnce.Do(func() {
		close(ps.done)
		if ps.pubsub != nil {
			err = ps.pubsub.Close()
		}
		ps.wg.Wait()
	})
	return err
}

// listenForEvents listens for invalidation events from Redis Pub/Sub.
func (ps *PubSubSynchronizer) listenForEvents() {
	defer ps.wg.Done()

	if ps.pubsub == nil {
		return
	}

	ch := ps.pubsub.Channel()

	for {
		select {
		case <-ps.done:
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}

			var event InvalidationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			// Own events were already applied locally.
			if event.Sender == ps.clientID {
				continue
			}

			ps.dispatch(event)
		}
	}
}

func (ps *PubSubSynchronizer) dispatch(event InvalidationEvent) {
	ps.callbacksMutex.RLock()
	callbacks := ps.callbacks
	ps.callbacksMutex.RUnlock()

	for _, callback := range callbacks {
		callback(event)
	}
}

// Hub connects LocalSynchronizers living in the same process.
type Hub struct {
	mu      sync.RWMutex
	members map[*LocalSynchronizer]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{members: make(map[*LocalSynchronizer]struct{})}
}

// LocalSynchronizer delivers events to the other members of its Hub.
// Delivery is synchronous: Publish returns after every receiver has run its
// callbacks.
type LocalSynchronizer struct {
	hub            *Hub
	clientID       string
	callbacks      []func(event InvalidationEvent)
	callbacksMutex sync.RWMutex
	closed         bool
}

// NewLocalSynchronizer creates a synchronizer attached to hub.
func NewLocalSynchronizer(hub *Hub, clientID string) *LocalSynchronizer {
	return &LocalSynchronizer{hub: hub, clientID: clientID}
}

// Subscribe joins the hub.
func (ls *LocalSynchronizer) Subscribe(ctx context.Context) error {
	ls.hub.mu.Lock()
	defer ls.hub.mu.Unlock()
	ls.hub.members[ls] = struct{}{}
	return nil
}

// Publish hands event to every other member of the hub.
func (ls *LocalSynchronizer) Publish(ctx context.Context, event InvalidationEvent) error {
	ls.hub.mu.RLock()
	if ls.closed {
		ls.hub.mu.RUnlock()
		return ErrClosed
	}
	receivers := make([]*LocalSynchronizer, 0, len(ls.hub.members))
	for m := range ls.hub.members {
		if m.clientID != event.Sender {
			receivers = append(receivers, m)
		}
	}
	ls.hub.mu.RUnlock()

	for _, r := range receivers {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.dispatch(event)
	}
	return nil
}

// OnInvalidate registers a callback for invalidation events.
func (ls *LocalSynchronizer) OnInvalidate(callback func(event InvalidationEvent)) {
	ls.callbacksMutex.Lock()
	defer ls.callbacksMutex.Unlock()
	ls.callbacks = append(ls.callbacks, callback)
}

// Close leaves the hub.
func (ls *LocalSynchronizer) Close() error {
	ls.hub.mu.Lock()
	defer ls.hub.mu.Unlock()
	delete(ls.hub.members, ls)
	ls.closed = true
	return nil
}

func (ls *LocalSynchronizer) dispatch(event InvalidationEvent) {
	ls.callbacksMutex.RLock()
	callbacks := ls.callbacks
	ls.callbacksMutex.RUnlock()

	for _, callback := range callbacks {
		callback(event)
	}
}
