// Package hooks runs configured shell commands at lifecycle stages.
package hooks

import (
	"context"
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Run executes commands in order with sh -c. A failing command does not stop
// the ones after it; all failures are returned combined.
func Run(ctx context.Context, stage string, commands []string) error {
	if len(commands) == 0 {
		return nil
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(commands))

	var errs error
	for _, command := range commands {
		zlog.Info().Msgf("Executing hook: %s", command)
		// sh -c allows redirection and pipes
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", command)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "%s hook %q", stage, command))
		}
	}
	return errs
}
