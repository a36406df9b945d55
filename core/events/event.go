package events

import "foodcourt/core/types"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that can be converted into the generic
// representation consumed by RPC subscribers and the journal.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers emitted events until the caller drains them. The ledger
// uses it to hold events until the surrounding transaction commits.
type Collector struct {
	events []Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(e Event) {
	c.events = append(c.events, e)
}

// Drain returns the buffered events and resets the collector.
func (c *Collector) Drain() []Event {
	out := c.events
	c.events = nil
	return out
}

// Reset discards buffered events.
func (c *Collector) Reset() {
	c.events = nil
}

// ToPayload converts a typed event to its generic representation. Events that
// do not implement Payload are reported with their type only.
func ToPayload(e Event) types.Event {
	if p, ok := e.(Payload); ok {
		if converted := p.Event(); converted != nil {
			return *converted
		}
	}
	return types.Event{Type: e.EventType(), Attributes: map[string]string{}}
}
