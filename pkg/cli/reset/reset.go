/* Copyright 2025 Leaf Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package reset clears the local replica and all derived state, returning the
// device to a signed-out blank slate. The four sub-operations are independent:
// a failure in one never prevents the others from running, so a partially
// broken installation can still be cleared as far as possible.
package reset

import (
	"fmt"
	"os"

	"github.com/leafnotes/leaf/pkg/cli/config"
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

// Steps holds the four independent sub-operations of a reset. They are
// injectable so that tests can observe which ones ran.
type Steps struct {
	WipeReplica      func() error
	ClearCredentials func() error
	ClearCache       func() error
	ClearDaemonState func() error
}

// Run attempts every step regardless of earlier failures and reports whether
// all of them succeeded. Failures are logged as they happen.
func Run(steps Steps) bool {
	ok := true

	run := func(name string, fn func() error) {
		if fn == nil {
			return
		}
		if err := fn(); err != nil {
			log.Error(errors.Wrapf(err, "resetting %s", name).Error() + "\n")
			ok = false
		}
	}

	run("local replica", steps.WipeReplica)
	run("credentials", steps.ClearCredentials)
	run("cache", steps.ClearCache)
	run("daemon state", steps.ClearDaemonState)

	return ok
}

// NewSteps builds the default reset steps for the given context
func NewSteps(ctx context.LeafCtx) Steps {
	return Steps{
		WipeReplica:      func() error { return wipeReplica(ctx) },
		ClearCredentials: func() error { return clearCredentials(ctx) },
		ClearCache:       func() error { return clearCache(ctx) },
		ClearDaemonState: func() error { return clearDaemonState(ctx) },
	}
}

// wipeReplica drops all replicated rows and resets the sync cursor, so the
// next sync after a sign-in starts from scratch
func wipeReplica(ctx context.LeafCtx) error {
	tx, err := ctx.DB.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	for _, table := range []string{"pages", "folders", "alarms"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "clearing %s", table)
		}
	}

	if err := database.UpsertSystem(tx, consts.SystemLastMaxUSN, 0); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "resetting last max usn")
	}
	if err := database.UpsertSystem(tx, consts.SystemLastSyncAt, 0); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "resetting last sync time")
	}
	if err := database.UpsertSystem(tx, consts.SystemSyncPending, 0); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "resetting the pending flag")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// clearCredentials removes the session and user identity, and rewrites the
// config file keeping only the locale. The locale is a device preference,
// not account state, so a reset must not lose it.
func clearCredentials(ctx context.LeafCtx) error {
	if err := database.DeleteSystem(ctx.DB, consts.SystemSessionKey); err != nil {
		return errors.Wrap(err, "deleting session key")
	}
	if err := database.DeleteSystem(ctx.DB, consts.SystemSessionKeyExpiry); err != nil {
		return errors.Wrap(err, "deleting session key expiry")
	}
	if err := database.DeleteSystem(ctx.DB, consts.SystemUserUUID); err != nil {
		return errors.Wrap(err, "deleting user uuid")
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}

	fresh := config.Config{
		Locale: cf.Locale,
	}
	if err := config.Write(ctx, fresh); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// clearCache removes the cache directory of the program
func clearCache(ctx context.LeafCtx) error {
	cacheDir := fmt.Sprintf("%s/%s", ctx.Paths.Cache, consts.LeafDirName)

	if err := os.RemoveAll(cacheDir); err != nil {
		return errors.Wrapf(err, "removing cache directory %s", cacheDir)
	}

	return nil
}

// clearDaemonState removes the pid file of the background daemon, if any
func clearDaemonState(ctx context.LeafCtx) error {
	pidPath := fmt.Sprintf("%s/%s/%s", ctx.Paths.Data, consts.LeafDirName, consts.DaemonPIDFileName)

	err := os.Remove(pidPath)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing pid file %s", pidPath)
	}

	return nil
}
