package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brambleworks/cob/pkg/cob"
)

// EventType names a kind of COB-layer event.
type EventType string

const (
	EventObjectCreated  EventType = "object.created"
	EventEntryAppended  EventType = "entry.appended"
	EventObjectRedacted EventType = "object.redacted"
	EventSeedConnected  EventType = "seed.connected"
	EventSeedLost       EventType = "seed.lost"
	EventFetchCompleted EventType = "fetch.completed"
)

// Event is one thing that happened to an object or the node connection,
// published for anything watching the repository (a CLI follow command,
// a future notification daemon).
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	TypeName  string
	Object    cob.ObjectId
	Message   string
	Metadata  map[string]string
}

// New builds an Event with a fresh correlation id. The id identifies the
// event itself for log correlation and de-duplication by subscribers; it
// is unrelated to the content-addressed EntryId of whatever COB entry
// triggered it.
func New(typ EventType, typeName string, object cob.ObjectId, message string) *Event {
	return &Event{
		ID:       uuid.NewString(),
		Type:     typ,
		TypeName: typeName,
		Object:   object,
		Message:  message,
	}
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker distributes published events to every live subscriber,
// dropping events for a subscriber whose buffer is full rather than
// blocking the publisher.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a broker with its internal queue unstarted.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop ends the distribution loop and leaves existing subscriber channels
// open; callers should Unsubscribe before discarding them.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes sub.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Emit satisfies cob.EventSink, letting pkg/cob publish without
// depending on this package: it builds an Event from the given fields
// and enqueues it the same way Publish does.
func (b *Broker) Emit(eventType, typeName string, object cob.ObjectId, message string) {
	b.Publish(New(EventType(eventType), typeName, object, message))
}

// Publish enqueues event for distribution, stamping its timestamp if
// unset.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
