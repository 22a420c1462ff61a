// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/janderssonse/applist/internal/domain"
	"github.com/urfave/cli/v3"
)

// lockRetryDelay is how often a waiting instance retries the device lock.
const lockRetryDelay = 200 * time.Millisecond

// deviceLocked wraps a command that talks to the device. Instances share one
// adb server, so such commands queue behind the current lock holder.
func (app *CLI) deviceLocked(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		unlock, err := app.lockDevice(ctx)
		if err != nil {
			return err
		}
		defer unlock()

		return action(ctx, cmd)
	}
}

func (app *CLI) lockDevice(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(app.lockPath), 0o755); err != nil {
		return nil, domain.NewExitError(ExitGeneralError, "Failed to create state directory", err)
	}

	lock := flock.New(app.lockPath)

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return nil, domain.NewExitError(ExitInterruptError,
				"Interrupted while waiting for another applist instance", ctx.Err())
		}

		return nil, domain.NewExitError(ExitGeneralError,
			fmt.Sprintf("Failed to acquire device lock %s", app.lockPath), err)
	}

	app.logger.Debug("device lock acquired")

	return func() {
		if err := lock.Unlock(); err != nil {
			app.console.Warningf("failed to release device lock: %v", err)
		}
	}, nil
}
