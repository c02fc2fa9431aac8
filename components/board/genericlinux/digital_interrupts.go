package genericlinux

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/gpio/components/board"
	"go.viam.com/gpio/logging"
)

// EdgeEvent is one edge seen on a pin.
type EdgeEvent struct {
	Pin    board.CanonicalPin
	Rising bool
	Time   time.Time
}

// An EdgeWaiter blocks until its pin sees the edge it was armed for.
type EdgeWaiter interface {
	WaitForEdge() (EdgeEvent, error)
	Close() error
}

// An EdgeSource prepares a pin to report edges.
type EdgeSource interface {
	ArmEdge(pin board.CanonicalPin, edge board.Edge) (EdgeWaiter, error)
}

// ArmState is where a pin is in its interrupt lifecycle.
type ArmState int

// The interrupt states. A pin goes back to Unarmed once its registration has been joined.
const (
	Unarmed ArmState = iota
	Armed
	Fired
)

func (s ArmState) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	}
	return "unknown"
}

// InterruptCallback is invoked from the pin's own goroutine.
type InterruptCallback func(EdgeEvent)

// Dispatcher arms pins for edge interrupts and runs a callback as each fires. A pin can belong
// to only one registration at a time.
type Dispatcher struct {
	source EdgeSource
	logger logging.Logger

	mu     sync.Mutex
	states map[board.CanonicalPin]ArmState
}

// NewDispatcher returns a dispatcher that arms pins through source.
func NewDispatcher(source EdgeSource, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		source: source,
		logger: logger,
		states: map[board.CanonicalPin]ArmState{},
	}
}

// State returns the interrupt state of pin.
func (d *Dispatcher) State(pin board.CanonicalPin) ArmState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[pin]
}

func (d *Dispatcher) setState(state ArmState, pins ...board.CanonicalPin) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pin := range pins {
		if state == Unarmed {
			delete(d.states, pin)
		} else {
			d.states[pin] = state
		}
	}
}

// reserve marks every pin Armed, or none of them if any already is.
func (d *Dispatcher) reserve(pins []board.CanonicalPin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pin := range pins {
		if state := d.states[pin]; state != Unarmed {
			return errors.Wrapf(board.ErrSetupFailed, "%s is already %s", pin, state)
		}
	}
	for _, pin := range pins {
		d.states[pin] = Armed
	}
	return nil
}

// Arm sets every pin up to interrupt on edge and starts waiting on each. Either all pins are
// armed or, on any failure, none are.
func (d *Dispatcher) Arm(pins []board.CanonicalPin, edge board.Edge, cb InterruptCallback) (*InterruptRegistration, error) {
	if !edge.Triggers() {
		return nil, errors.Wrapf(board.ErrSetupFailed, "cannot wait for edge %s", edge)
	}
	if len(pins) == 0 {
		return nil, errors.Wrap(board.ErrSetupFailed, "no pins to wait on")
	}
	if dups := lo.FindDuplicates(pins); len(dups) > 0 {
		return nil, errors.Wrapf(board.ErrSetupFailed, "pins listed more than once: %s", pinList(dups))
	}
	for _, pin := range pins {
		if !pin.Valid() {
			return nil, board.NewInvalidPinError(int(pin), board.SchemeBCM)
		}
	}
	if err := d.reserve(pins); err != nil {
		return nil, err
	}

	waiters := make([]EdgeWaiter, len(pins))
	var group errgroup.Group
	for i, pin := range pins {
		group.Go(func() error {
			waiter, err := d.source.ArmEdge(pin, edge)
			if err != nil {
				return errors.Wrapf(err, "arming %s", pin)
			}
			waiters[i] = waiter
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		var closeErrs []error
		for _, waiter := range waiters {
			if waiter != nil {
				closeErrs = append(closeErrs, waiter.Close())
			}
		}
		if closeErr := multierr.Combine(closeErrs...); closeErr != nil {
			d.logger.Debugw("closing partially armed pins", "error", closeErr)
		}
		d.setState(Unarmed, pins...)
		return nil, errors.Wrapf(board.ErrSetupFailed, "%v", err)
	}

	reg := &InterruptRegistration{
		pins:    pins,
		edge:    edge,
		waiters: waiters,
		done:    make(chan struct{}),
	}
	d.logger.Debugw("armed", "pins", pinList(pins), "edge", edge.String())

	var workers sync.WaitGroup
	for i, pin := range pins {
		workers.Add(1)
		goutils.PanicCapturingGo(func() {
			defer workers.Done()
			event, err := waiters[i].WaitForEdge()
			if err != nil {
				reg.addError(errors.Wrapf(err, "waiting on %s", pin))
				return
			}
			d.setState(Fired, pin)
			d.logger.Debugw("edge", "pin", pin.String(), "rising", event.Rising)
			if cb != nil {
				cb(event)
			}
		})
	}
	goutils.PanicCapturingGo(func() {
		workers.Wait()
		var errs []error
		for _, waiter := range waiters {
			errs = append(errs, waiter.Close())
		}
		reg.addError(multierr.Combine(errs...))
		d.setState(Unarmed, pins...)
		close(reg.done)
	})
	return reg, nil
}

// InterruptRegistration is one Arm call. It ends when every pin has fired once.
type InterruptRegistration struct {
	pins    []board.CanonicalPin
	edge    board.Edge
	waiters []EdgeWaiter
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func (r *InterruptRegistration) addError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = multierr.Combine(r.err, err)
}

// Pins returns the pins of the registration in the order they were given.
func (r *InterruptRegistration) Pins() []board.CanonicalPin {
	return r.pins
}

// Edge returns the edge the pins were armed for.
func (r *InterruptRegistration) Edge() board.Edge {
	return r.edge
}

// Done is closed once every pin has fired and been released.
func (r *InterruptRegistration) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every pin has fired once, then returns any error from waiting or releasing.
func (r *InterruptRegistration) Wait() error {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func pinList(pins []board.CanonicalPin) string {
	return strings.Join(lo.Map(pins, func(pin board.CanonicalPin, _ int) string {
		return fmt.Sprint(int(pin))
	}), ",")
}
