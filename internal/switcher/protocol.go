package switcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/yath/sstcs/internal/channel"
	"github.com/yath/sstcs/internal/common"
)

// Result values of SetMainTVChannel the protocol understands.
const (
	ResultOK             = "OK"
	ResultInvalidChannel = "NOTOK_InvalidCh"
)

// SatelliteID is sent with every SetMainTVChannel request.
const SatelliteID = "0"

var (
	ErrExhausted        = errors.New("no channel list category accepted the channel")
	ErrUnexpectedResult = errors.New("unexpected SetMainTVChannel result")
	ErrInvoke           = errors.New("SetMainTVChannel failed")
)

// State is the state of one switch attempt.
type State int

const (
	Attempting State = iota
	Succeeded
	Exhausted
	UnexpectedResult
	Failed
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "exhausted"
	case UnexpectedResult:
		return "unexpected result"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further invocation follows s.
func (s State) Terminal() bool {
	return s != Attempting
}

// Request is one SetMainTVChannel call.
type Request struct {
	Category    Category
	SatelliteID string
	Channel     string
}

// Invoker performs SetMainTVChannel and returns its Result out-argument.
// An error means the action itself failed; it is never retried.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Queue is an immutable FIFO of categories still to try. Pop never mutates
// the receiver, so a Queue value can be handed around freely.
type Queue struct {
	items []Category
}

func NewQueue(items []Category) Queue {
	return Queue{items: append([]Category(nil), items...)}
}

// Pop returns the head and the remaining queue, or ok=false when empty.
func (q Queue) Pop() (head Category, rest Queue, ok bool) {
	if len(q.items) == 0 {
		return "", q, false
	}
	return q.items[0], Queue{items: q.items[1:len(q.items):len(q.items)]}, true
}

func (q Queue) Len() int { return len(q.items) }

// Transition maps the result of an attempt to the next state. For
// Attempting, next is the category to retry with and rest the queue after
// it was taken.
func Transition(result string, q Queue) (state State, next Category, rest Queue) {
	switch result {
	case ResultOK:
		return Succeeded, "", q
	case ResultInvalidChannel:
		head, remaining, ok := q.Pop()
		if !ok {
			return Exhausted, "", q
		}
		return Attempting, head, remaining
	default:
		return UnexpectedResult, "", q
	}
}

// Attempt records one invocation.
type Attempt struct {
	Category Category
	Result   string
	Err      error
}

// Outcome is the terminal state of a switch. Category and Result belong to
// the last attempt made.
type Outcome struct {
	State    State
	Category Category
	Result   string
	Attempts []Attempt
	cause    error
}

// Categories lists the categories tried, in order.
func (o Outcome) Categories() []string {
	out := make([]string, len(o.Attempts))
	for i, a := range o.Attempts {
		out[i] = string(a.Category)
	}
	return out
}

// Err returns nil for Succeeded and a descriptive error otherwise.
func (o Outcome) Err() error {
	switch o.State {
	case Succeeded:
		return nil
	case Exhausted:
		return fmt.Errorf("%w (tried %d categories, last %s)", ErrExhausted, len(o.Attempts), o.Category)
	case UnexpectedResult:
		return fmt.Errorf("%w %q for category %s", ErrUnexpectedResult, o.Result, o.Category)
	case Failed:
		return fmt.Errorf("%w for category %s: %w", ErrInvoke, o.Category, o.cause)
	}
	return fmt.Errorf("switch did not finish (state %s)", o.State)
}

// Switcher runs the switch protocol. Fallbacks defaults to Fallbacks().
type Switcher struct {
	Invoker   Invoker
	Fallbacks []Category
	Log       *common.Logger
}

// Switch asks the TV to tune to ch under initial and walks the fallback
// categories for as long as the TV answers NOTOK_InvalidCh. At most
// len(Fallbacks)+1 invocations are made.
func (s *Switcher) Switch(ctx context.Context, ch channel.Descriptor, initial Category) Outcome {
	log := s.Log
	if log == nil {
		log = common.NewLogger("switch")
	}
	fallbacks := s.Fallbacks
	if fallbacks == nil {
		fallbacks = Fallbacks()
	}

	fragment := ch.XML()
	queue := NewQueue(fallbacks)
	out := Outcome{State: Attempting, Category: initial}
	for !out.State.Terminal() {
		if err := ctx.Err(); err != nil {
			out.State, out.cause = Failed, err
			break
		}
		log.Debugf("SetMainTVChannel(%s, %s)", out.Category, ch)
		res, err := s.Invoker.Invoke(ctx, Request{Category: out.Category, SatelliteID: SatelliteID, Channel: fragment})
		out.Attempts = append(out.Attempts, Attempt{Category: out.Category, Result: res, Err: err})
		if err != nil {
			out.State, out.cause = Failed, err
			break
		}
		out.Result = res
		log.Debugf("SetMainTVChannel returned %q", res)

		state, next, rest := Transition(res, queue)
		if state == Attempting {
			log.Warnf("channel %s not in current channel list, trying with %s", ch.Title, next)
			out.Category, queue = next, rest
		}
		out.State = state
	}
	return out
}

// Switch runs the protocol with the default fallback sequence.
func Switch(ctx context.Context, ch channel.Descriptor, initial Category, inv Invoker) Outcome {
	s := &Switcher{Invoker: inv}
	return s.Switch(ctx, ch, initial)
}
