package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// catchupLimit is the maximum number of events returned in a catchup response.
// If more events are missed, a catchup.overflow message tells the client to
// do a full REST reload.
const catchupLimit = 200

// listenTimeout bounds how long a LISTEN command may block when subscribing to
// a new PG channel. Without this, a stalled connection would block the
// subscribing HTTP request indefinitely.
const listenTimeout = 10 * time.Second

// subscriberBuffer sizes each subscriber's event channel. Catchup events are
// staged into the channel before the SSE handler starts draining, so the
// buffer must hold a full catchup batch plus headroom for live events that
// arrive during the staging window.
const subscriberBuffer = catchupLimit + 64

// errSubscriberFull is returned by subscriber.send when the event channel
// buffer is exhausted, meaning the client is not draining fast enough.
var errSubscriberFull = errors.New("subscriber buffer full")

// CatchupEvent holds the data returned by the catchup query.
type CatchupEvent struct {
	ID      int64
	Payload map[string]interface{}
}

// CatchupQuerier queries events for catchup. Implemented by EventService.
type CatchupQuerier interface {
	GetCatchupEvents(ctx context.Context, channel string, sinceID int64, limit int) ([]CatchupEvent, error)
}

// SubscriberManager manages SSE subscriptions and channel fan-out.
// Each Go process (pod) has one SubscriberManager instance.
//
// Delivery is at-least-once: LISTEN is established before the catchup query
// runs, so an event published in the overlap window can arrive both from
// catchup and live NOTIFY. Clients dedup by db_event_id.
type SubscriberManager struct {
	// Active subscribers: subscriber_id → *subscriber
	subscribers map[string]*subscriber
	mu          sync.RWMutex

	// Channel subscriptions: channel → set of subscriber_ids
	channels  map[string]map[string]bool
	channelMu sync.RWMutex

	// CatchupQuerier for catchup queries
	catchupQuerier CatchupQuerier

	// NotifyListener for dynamic LISTEN/UNLISTEN (set after construction)
	listener   *NotifyListener
	listenerMu sync.RWMutex
}

// subscriber is the manager-side state for one SSE stream. Events are
// delivered through a buffered channel the HTTP handler drains.
//
// send and close are guarded by mu so a Broadcast racing with Close never
// writes to a closed channel.
type subscriber struct {
	id      string
	channel string
	events  chan []byte

	mu     sync.Mutex
	closed bool
}

func newSubscriber(channel string) *subscriber {
	return &subscriber{
		id:      uuid.New().String(),
		channel: channel,
		events:  make(chan []byte, subscriberBuffer),
	}
}

// send delivers an event without blocking. A closed subscriber swallows the
// event silently (it is being torn down); a full buffer returns
// errSubscriberFull so the caller can log the drop.
func (s *subscriber) send(event []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.events <- event:
		return nil
	default:
		return errSubscriberFull
	}
}

// close marks the subscriber closed and closes the events channel, ending
// the SSE stream on the handler side. Idempotent.
func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Subscription is the handle returned to the SSE handler. The handler drains
// Events until it is closed (manager-side teardown) or the client goes away,
// then calls Close.
type Subscription struct {
	ID      string
	Channel string
	Events  <-chan []byte

	manager   *SubscriberManager
	closeOnce sync.Once
}

// Close detaches the subscription from the manager. Safe to call multiple
// times and safe to call after the manager already tore the subscriber down.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.manager.removeSubscriber(s.ID, s.Channel)
	})
}

// NewSubscriberManager creates a new SubscriberManager.
func NewSubscriberManager(catchupQuerier CatchupQuerier) *SubscriberManager {
	return &SubscriberManager{
		subscribers:    make(map[string]*subscriber),
		channels:       make(map[string]map[string]bool),
		catchupQuerier: catchupQuerier,
	}
}

// SetListener sets the NotifyListener for dynamic LISTEN/UNLISTEN.
// Called once during startup after both SubscriberManager and NotifyListener are created.
func (m *SubscriberManager) SetListener(l *NotifyListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listener = l
}

// Subscribe registers a new SSE subscriber on a channel and returns its
// Subscription. If this is the channel's first subscriber, LISTEN is started
// synchronously before the catchup query so no event can fall in the gap
// between the two. Catchup events since lastEventID (0 = everything) are
// staged into the subscription's buffer before Subscribe returns; live
// events follow as they are broadcast.
func (m *SubscriberManager) Subscribe(ctx context.Context, channel string, lastEventID int64) (*Subscription, error) {
	sub := newSubscriber(channel)

	m.mu.Lock()
	m.subscribers[sub.id] = sub
	m.mu.Unlock()

	m.channelMu.Lock()
	needsListen := false
	if _, exists := m.channels[channel]; !exists {
		m.channels[channel] = make(map[string]bool)
		needsListen = true
	}
	m.channels[channel][sub.id] = true
	m.channelMu.Unlock()

	if needsListen {
		m.listenerMu.RLock()
		l := m.listener
		m.listenerMu.RUnlock()
		if l != nil {
			listenCtx, listenCancel := context.WithTimeout(context.Background(), listenTimeout)
			defer listenCancel()
			if err := l.Subscribe(listenCtx, channel); err != nil {
				slog.Error("Failed to LISTEN on channel", "channel", channel, "error", err)
				m.cleanupFailedChannel(sub, channel)
				m.mu.Lock()
				delete(m.subscribers, sub.id)
				m.mu.Unlock()
				sub.close()
				return nil, fmt.Errorf("LISTEN on channel %s: %w", channel, err)
			}
		}
	}

	// Catch-up: deliver missed events so reconnecting clients see everything.
	m.stageCatchup(ctx, sub, channel, lastEventID)

	return &Subscription{
		ID:      sub.id,
		Channel: channel,
		Events:  sub.events,
		manager: m,
	}, nil
}

// Broadcast sends an event payload to all subscribers of the given channel.
// Slow subscribers whose buffers are full have the event dropped; the SSE
// client recovers on reconnect via Last-Event-ID catchup.
func (m *SubscriberManager) Broadcast(channel string, event []byte) {
	m.channelMu.RLock()
	subIDs, exists := m.channels[channel]
	if !exists {
		m.channelMu.RUnlock()
		return
	}
	// Copy IDs to avoid holding lock during sends
	ids := make([]string, 0, len(subIDs))
	for id := range subIDs {
		ids = append(ids, id)
	}
	m.channelMu.RUnlock()

	m.mu.RLock()
	subs := make([]*subscriber, 0, len(ids))
	for _, id := range ids {
		if sub, ok := m.subscribers[id]; ok {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.send(event); err != nil {
			slog.Warn("Dropping event for slow SSE subscriber",
				"subscriber_id", sub.id, "channel", channel, "error", err)
		}
	}
}

// ActiveSubscribers returns the count of active SSE subscribers.
func (m *SubscriberManager) ActiveSubscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers)
}

// subscriberCount returns the number of subscribers for a channel.
// Unexported — used by tests to poll instead of sleeping.
func (m *SubscriberManager) subscriberCount(channel string) int {
	m.channelMu.RLock()
	defer m.channelMu.RUnlock()
	return len(m.channels[channel])
}

// cleanupFailedChannel removes ALL subscribers from a channel after a LISTEN
// failure and closes every affected stream (except the triggering one, which
// the caller tears down via the returned error).
//
// Between unlocking channelMu (after creating the channel entry) and
// l.Subscribe completing, other goroutines may have subscribed to the same
// channel. Because they saw the channel already existed they skipped LISTEN
// and got a working-looking Subscription. Those subscribers are now orphaned:
// their streams would never receive live events. Closing their channels ends
// the SSE responses, and the clients' automatic reconnect re-attempts the
// whole subscribe (including LISTEN).
func (m *SubscriberManager) cleanupFailedChannel(triggering *subscriber, channel string) {
	// Collect all affected subscriber IDs and delete the channel entirely.
	m.channelMu.Lock()
	affectedIDs := make([]string, 0, len(m.channels[channel]))
	for subID := range m.channels[channel] {
		if subID != triggering.id {
			affectedIDs = append(affectedIDs, subID)
		}
	}
	delete(m.channels, channel)
	m.channelMu.Unlock()

	if len(affectedIDs) == 0 {
		return
	}

	m.mu.Lock()
	subs := make([]*subscriber, 0, len(affectedIDs))
	for _, id := range affectedIDs {
		if sub, ok := m.subscribers[id]; ok {
			subs = append(subs, sub)
			delete(m.subscribers, id)
		}
	}
	m.mu.Unlock()

	for _, sub := range subs {
		slog.Warn("Closing orphaned subscriber after LISTEN failure",
			"subscriber_id", sub.id, "channel", channel)
		sub.close()
	}
}

// removeSubscriber detaches a subscriber from a channel, stops LISTEN if it
// was the last one, and closes its stream.
func (m *SubscriberManager) removeSubscriber(id, channel string) {
	m.channelMu.Lock()
	if subs, exists := m.channels[channel]; exists {
		delete(subs, id)
		if len(subs) == 0 {
			delete(m.channels, channel)
			// Last subscriber left — stop LISTEN.
			// The goroutine re-checks m.channels before issuing UNLISTEN to
			// prevent a race where a rapid disconnect/reconnect cycle (an SSE
			// client dropping and immediately re-establishing the stream)
			// would drop the LISTEN:
			//   subscribe → LISTEN active
			//   disconnect → goroutine: UNLISTEN (deferred)
			//   reconnect → channel re-added to m.channels
			//   goroutine → sees resubscribed → skips UNLISTEN
			m.listenerMu.RLock()
			l := m.listener
			m.listenerMu.RUnlock()
			if l != nil {
				go func() {
					m.channelMu.RLock()
					_, resubscribed := m.channels[channel]
					m.channelMu.RUnlock()
					if resubscribed {
						return
					}
					if err := l.Unsubscribe(context.Background(), channel); err != nil {
						slog.Error("Failed to UNLISTEN channel", "channel", channel, "error", err)
					}
				}()
			}
		}
	}
	m.channelMu.Unlock()

	m.mu.Lock()
	sub, ok := m.subscribers[id]
	delete(m.subscribers, id)
	m.mu.Unlock()

	if ok {
		sub.close()
	}
}

// stageCatchup loads missed events since lastEventID into the subscriber's
// buffer.
func (m *SubscriberManager) stageCatchup(ctx context.Context, sub *subscriber, channel string, lastEventID int64) {
	if m.catchupQuerier == nil {
		return
	}

	// Query events from DB since lastEventID (capped at catchupLimit + 1 to detect overflow)
	events, err := m.catchupQuerier.GetCatchupEvents(ctx, channel, lastEventID, catchupLimit+1)
	if err != nil {
		slog.Error("Catchup query failed", "channel", channel, "error", err)
		return
	}

	// Check if more events exist beyond the limit
	hasMore := len(events) > catchupLimit
	if hasMore {
		events = events[:catchupLimit]
	}

	// Stage missed events in order, injecting db_event_id for position
	// tracking. The stored payload doesn't contain db_event_id (it's only
	// added to the NOTIFY payload at publish time), so we add it here from
	// the DB row ID.
	for _, evt := range events {
		evt.Payload["db_event_id"] = evt.ID
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			continue
		}
		if err := sub.send(payload); err != nil {
			slog.Warn("Failed to stage catchup event",
				"subscriber_id", sub.id, "channel", channel, "error", err)
			return
		}
	}

	// If more events were missed than the catchup limit, tell the client
	// to do a full REST reload instead of paginating catchup requests.
	if hasMore {
		overflow, err := json.Marshal(map[string]interface{}{
			"type":     "catchup.overflow",
			"channel":  channel,
			"has_more": true,
		})
		if err != nil {
			return
		}
		if err := sub.send(overflow); err != nil {
			slog.Warn("Failed to stage catchup overflow notice",
				"subscriber_id", sub.id, "channel", channel, "error", err)
		}
	}
}
