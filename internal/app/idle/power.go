package idle

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// PowerOff powers the box down after the idle threshold.
type PowerOff struct {
	// Delay is waited before signalling so the announcement can finish.
	Delay time.Duration
	// Signal drives the shutdown output. Nil when no output is wired.
	Signal func() error
	// Commands runs the configured shutdown commands. Nil when none.
	Commands func(context.Context) error
	Sleep    func(context.Context, time.Duration) error
}

// Action returns the power-off sequence as a guard action: wait, signal,
// then run the commands. The commands run even when signalling fails.
func (p PowerOff) Action() Action {
	return func(ctx context.Context) error {
		sleep := p.Sleep
		if sleep == nil {
			sleep = sleepContext
		}
		if p.Delay > 0 {
			zlog.Info().Msgf("idle: powering off in %s", p.Delay)
			if err := sleep(ctx, p.Delay); err != nil {
				return err
			}
		}

		var errs error
		if p.Signal != nil {
			if err := p.Signal(); err != nil {
				errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to signal shutdown"))
			}
		}
		if p.Commands != nil {
			errs = errors.CombineErrors(errs, p.Commands(ctx))
		}
		return errs
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
