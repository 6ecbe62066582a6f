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

package sync

import (
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

// Notify records that local data changed and a sync is wanted. The tag names
// the mutation that fired the trigger, for diagnostics. Notify is
// fire-and-forget: a failure to record the flag must not fail the mutation
// that triggered it, so errors are logged and swallowed.
func Notify(db *database.DB, tag string) {
	if err := database.UpsertSystem(db, consts.SystemSyncPending, 1); err != nil {
		log.Debug("recording sync trigger: %v\n", err)
		return
	}
	if err := database.UpsertSystem(db, consts.SystemSyncPendingTag, tag); err != nil {
		log.Debug("recording sync trigger tag: %v\n", err)
	}

	log.Debug("sync requested by %s\n", tag)
}

// Pending reports whether a sync has been requested since the last completed one
func Pending(db *database.DB) (bool, error) {
	var val int
	if err := database.GetSystem(db, consts.SystemSyncPending, &val); err != nil {
		return false, errors.Wrap(err, "querying the pending flag")
	}

	return val == 1, nil
}

// ClearPending resets the pending flag. Called after a successful sync.
func ClearPending(db *database.DB) error {
	if err := database.UpsertSystem(db, consts.SystemSyncPending, 0); err != nil {
		return errors.Wrap(err, "clearing the pending flag")
	}
	if err := database.UpsertSystem(db, consts.SystemSyncPendingTag, ""); err != nil {
		return errors.Wrap(err, "clearing the pending tag")
	}

	return nil
}

// DeleteAlarmsForPages marks deleted all alarms referencing the given pages and
// requests a sync. Deleting pages that have no alarms is a valid no-op.
func DeleteAlarmsForPages(db *database.DB, userUUID string, pageUUIDs []string, now int64) (int, error) {
	count, err := database.DeleteAlarmsByPageUUIDs(db, userUUID, pageUUIDs, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting alarms")
	}

	if count > 0 {
		Notify(db, "delete-alarms-by-pages")
	}

	return count, nil
}
