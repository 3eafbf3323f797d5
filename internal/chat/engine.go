package chat

import (
	"context"

	"github.com/saravenpi/tablechat/internal/models"
)

// State is the lifecycle phase of the selected conversation.
type State int

const (
	Idle State = iota
	Loading
	Live
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Live:
		return "live"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Feed is the closing side of a live connection held by the engine.
type Feed interface {
	Close() error
}

// Ticket identifies one selection of one conversation. Results carrying an
// older ticket belong to an abandoned selection and are ignored.
type Ticket struct {
	ClientID   string
	Generation uint64
}

// Engine reconciles the message history of the selected conversation with
// its live feed. It is not safe for concurrent use; callers drive it from a
// single event loop.
type Engine struct {
	ticket    Ticket
	state     State
	messages  []models.Message
	feed      Feed
	connected bool
	cancel    context.CancelFunc
	err       error

	// updates to messages not seen yet, held until the history arrives
	pending []models.Message
}

// NewEngine returns an Idle engine with no conversation selected.
func NewEngine() *Engine {
	return &Engine{}
}

// Switch tears down the current conversation and starts clientID. The
// returned context lives as long as the ticket: the history fetch and the
// live dial both run under it, and only the next Switch or Stop cancels it.
// An empty clientID leaves the engine Idle.
func (e *Engine) Switch(parent context.Context, clientID string) (Ticket, context.Context) {
	e.teardown()

	e.ticket = Ticket{ClientID: clientID, Generation: e.ticket.Generation + 1}
	if clientID == "" {
		e.state = Idle
		ctx, cancel := context.WithCancel(parent)
		cancel()
		return e.ticket, ctx
	}

	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.state = Loading
	return e.ticket, ctx
}

// Stop tears down the current conversation and returns to Idle.
func (e *Engine) Stop() {
	e.teardown()
	e.ticket = Ticket{Generation: e.ticket.Generation + 1}
	e.state = Idle
}

func (e *Engine) teardown() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.feed != nil {
		if e.connected {
			_ = e.feed.Close()
		}
		e.feed = nil
	}
	e.connected = false
	e.messages = nil
	e.pending = nil
	e.err = nil
}

// Current reports whether t belongs to the active selection.
func (e *Engine) Current(t Ticket) bool {
	return t.ClientID != "" && t == e.ticket
}

// Attach binds the live feed dialled for t. A feed for a stale ticket is
// closed straight away and false is returned.
func (e *Engine) Attach(t Ticket, feed Feed) bool {
	if !e.Current(t) {
		_ = feed.Close()
		return false
	}
	if e.feed != nil && e.connected {
		_ = e.feed.Close()
	}
	e.feed = feed
	e.connected = true
	return true
}

// FeedClosed records that the live feed for t stopped delivering.
func (e *Engine) FeedClosed(t Ticket) {
	if !e.Current(t) {
		return
	}
	e.connected = false
}

// ResolveHistory applies the outcome of the history fetch for t. Messages
// already received live are layered on top of the history, so neither a
// live message nor a live update to a historical message is lost. The
// ticket's context stays open for a dial still in flight.
func (e *Engine) ResolveHistory(t Ticket, history []models.Message, err error) bool {
	if !e.Current(t) {
		return false
	}

	if err != nil {
		e.state = Failed
		e.err = err
		return true
	}

	var next []models.Message
	for _, m := range history {
		next, _ = Merge(next, m, Created)
	}
	for _, m := range e.messages {
		if indexOf(next, m.UID) >= 0 {
			next, _ = Merge(next, m, Updated)
		} else {
			next, _ = Merge(next, m, Created)
		}
	}
	for _, m := range e.pending {
		next, _ = Merge(next, m, Updated)
	}

	e.messages = next
	e.pending = nil
	e.state = Live
	e.err = nil
	return true
}

// HandleFrame decodes a raw live frame for t and merges it. It reports
// whether the message list changed; malformed frames change nothing.
func (e *Engine) HandleFrame(t Ticket, raw []byte) bool {
	if !e.Current(t) {
		return false
	}
	ev, ok := ParseEvent(raw)
	if !ok {
		return false
	}
	return e.Apply(t, ev)
}

// Apply merges a decoded event for t. While the history is loading, an
// update for a message not received yet is held back and applied once the
// history has been folded in.
func (e *Engine) Apply(t Ticket, ev Event) bool {
	if !e.Current(t) {
		return false
	}
	next, changed := Merge(e.messages, ev.Message, ev.Kind)
	if changed {
		e.messages = next
		return true
	}
	if e.state == Loading && ev.Kind == Updated && indexOf(e.messages, ev.Message.UID) < 0 {
		if i := indexOf(e.pending, ev.Message.UID); i >= 0 {
			e.pending[i] = ev.Message
		} else {
			e.pending = append(e.pending, ev.Message)
		}
	}
	return false
}

// Ticket returns the ticket of the active selection.
func (e *Engine) Ticket() Ticket { return e.ticket }

// ClientID returns the selected conversation, or "" when Idle.
func (e *Engine) ClientID() string { return e.ticket.ClientID }

// State returns the lifecycle phase.
func (e *Engine) State() State { return e.state }

// Err returns the history fetch error while Failed.
func (e *Engine) Err() error { return e.err }

// Connected reports whether a live feed is attached and still delivering.
func (e *Engine) Connected() bool { return e.connected }

// Count returns the number of reconciled messages.
func (e *Engine) Count() int { return len(e.messages) }

// Messages returns a copy of the reconciled list.
func (e *Engine) Messages() []models.Message {
	out := make([]models.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Latest returns the most recently received message, if any.
func (e *Engine) Latest() (models.Message, bool) {
	if len(e.messages) == 0 {
		return models.Message{}, false
	}
	return e.messages[len(e.messages)-1], true
}
