// Package progress carries run checkpoints to whoever is watching a run.
// Delivery is best effort: reporters may fail and callers are expected to
// log and carry on.
package progress

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

// Kind is the event type.
type Kind string

const (
	KindProgress Kind = "progress"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
)

// Event is one notification from a run.
type Event struct {
	RunID      string
	Kind       Kind
	Percentage int
	Message    string
	Result     *models.AnalysisResult
	Context    map[string]string
}

// ErrDropped is returned when a reporter had no room for an event.
var ErrDropped = errors.New("progress: event dropped")

// ErrClosed is returned by a reporter that no longer accepts events.
var ErrClosed = errors.New("progress: reporter closed")

// Reporter receives events.
type Reporter interface {
	Report(ev Event) error
}

// Func adapts a function to a Reporter.
type Func func(ev Event) error

func (f Func) Report(ev Event) error { return f(ev) }

// Discard drops every event.
var Discard Reporter = Func(func(Event) error { return nil })

// Emitter stamps every event with its run id.
type Emitter struct {
	RunID string
	r     Reporter
}

// NewEmitter starts a new run id over r.
func NewEmitter(r Reporter) *Emitter {
	if r == nil {
		r = Discard
	}
	return &Emitter{RunID: uuid.NewString(), r: r}
}

// Progress reports a checkpoint; percentage is clamped to 0..100.
func (e *Emitter) Progress(percentage int, message string) error {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	return e.r.Report(Event{RunID: e.RunID, Kind: KindProgress, Percentage: percentage, Message: message})
}

// Complete reports the final result.
func (e *Emitter) Complete(result *models.AnalysisResult) error {
	return e.r.Report(Event{RunID: e.RunID, Kind: KindComplete, Percentage: 100, Result: result})
}

// Fail reports a terminal error.
func (e *Emitter) Fail(message string, context map[string]string) error {
	return e.r.Report(Event{RunID: e.RunID, Kind: KindError, Message: message, Context: context})
}

// Log writes events to a logger.
type Log struct {
	Logger *utils.Logger
}

func (l Log) Report(ev Event) error {
	switch ev.Kind {
	case KindProgress:
		l.Logger.Info("[progress] %3d%% %s", ev.Percentage, ev.Message)
	case KindComplete:
		n := 0
		if ev.Result != nil {
			n = len(ev.Result.Items)
		}
		l.Logger.Info("[progress] run %s complete: %d items", ev.RunID, n)
	case KindError:
		l.Logger.Error("[progress] run %s failed: %s %v", ev.RunID, ev.Message, ev.Context)
	}
	return nil
}

// Channel delivers events to a buffered channel without ever blocking the run.
type Channel struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Event, buffer)}
}

// Events is the receive side.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

func (c *Channel) Report(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.ch <- ev:
		return nil
	default:
		return ErrDropped
	}
}

// Close stops delivery and closes the channel.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Multi fans events out to several reporters and joins their errors.
func Multi(reporters ...Reporter) Reporter {
	return Func(func(ev Event) error {
		var errs []error
		for _, r := range reporters {
			if err := r.Report(ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
