// Package gpio wires the optional buttons and outputs through periph.io.
package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	// DefaultDebounce suppresses contact bounce on the skip button.
	DefaultDebounce = 300 * time.Millisecond

	edgeWait = 200 * time.Millisecond
)

var (
	initOnce sync.Once
	initErr  error
)

// inputPin is the part of gpio.PinIO used for inputs.
type inputPin interface {
	Name() string
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// outputPin is the part of gpio.PinIO used for outputs.
type outputPin interface {
	Name() string
	Out(l gpio.Level) error
}

// Init loads the host drivers. Safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			initErr = errors.Wrap(err, "failed to initialize periph host drivers")
		}
	})
	return initErr
}

func lookup(name string) (gpio.PinIO, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Newf("gpio pin %q not found", name)
	}
	return p, nil
}

// EnablePin reports the level of the enable switch. High means enabled.
type EnablePin struct {
	pin inputPin
}

// NewEnablePin configures the named pin as a pulled-down input.
func NewEnablePin(name string) (*EnablePin, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return newEnablePin(p)
}

func newEnablePin(p inputPin) (*EnablePin, error) {
	if err := p.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, errors.Wrapf(err, "failed to configure enable pin %s", p.Name())
	}
	return &EnablePin{pin: p}, nil
}

// Enabled reports whether the switch is on.
func (e *EnablePin) Enabled() bool {
	return e.pin.Read() == gpio.High
}

// Button calls back on each debounced press of a pulled-up push button.
type Button struct {
	pin      inputPin
	debounce time.Duration
	now      func() time.Time
}

// NewButton configures the named pin as a pulled-up input with falling-edge detection.
func NewButton(name string) (*Button, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return newButton(p, DefaultDebounce, time.Now)
}

func newButton(p inputPin, debounce time.Duration, now func() time.Time) (*Button, error) {
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, errors.Wrapf(err, "failed to configure button pin %s", p.Name())
	}
	return &Button{pin: p, debounce: debounce, now: now}, nil
}

// Watch calls onPress for every press until ctx is cancelled.
func (b *Button) Watch(ctx context.Context, onPress func()) {
	var last time.Time
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(edgeWait) {
			continue
		}
		now := b.now()
		if !last.IsZero() && now.Sub(last) < b.debounce {
			continue
		}
		last = now
		zlog.Debug().Msgf("gpio: button %s pressed", b.pin.Name())
		onPress()
	}
}

// ShutdownPin is an output driven high to tell external power circuitry to cut power.
type ShutdownPin struct {
	pin outputPin
}

// NewShutdownPin configures the named pin as an output, initially low.
func NewShutdownPin(name string) (*ShutdownPin, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return newShutdownPin(p)
}

func newShutdownPin(p outputPin) (*ShutdownPin, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "failed to configure shutdown pin %s", p.Name())
	}
	return &ShutdownPin{pin: p}, nil
}

// Signal drives the pin high.
func (s *ShutdownPin) Signal() error {
	zlog.Info().Msgf("gpio: driving shutdown pin %s high", s.pin.Name())
	return errors.Wrap(s.pin.Out(gpio.High), "failed to drive shutdown pin")
}
