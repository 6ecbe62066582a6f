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

package migrate

import (
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/pkg/errors"
)

var lm1 = migration{
	name: "add-kind-to-pages",
	run: func(ctx context.LeafCtx, tx *database.DB) error {
		_, err := tx.Exec("ALTER TABLE pages ADD COLUMN kind text NOT NULL DEFAULT 'text'")
		if err != nil {
			return errors.Wrap(err, "adding kind column")
		}

		return nil
	},
}

var lm2 = migration{
	name: "add-last-notification-id-to-alarms",
	run: func(ctx context.LeafCtx, tx *database.DB) error {
		_, err := tx.Exec("ALTER TABLE alarms ADD COLUMN last_notification_id text")
		if err != nil {
			return errors.Wrap(err, "adding last_notification_id column")
		}

		return nil
	},
}

var lm3 = migration{
	name: "add-last-page-added-on-to-folders",
	run: func(ctx context.LeafCtx, tx *database.DB) error {
		_, err := tx.Exec("ALTER TABLE folders ADD COLUMN last_page_added_on integer NOT NULL DEFAULT 0")
		if err != nil {
			return errors.Wrap(err, "adding last_page_added_on column")
		}

		return nil
	},
}

// rm1 resets the sync state so that the next sync is a full sync. The server
// started sending alarm fragments, and a replica synced before that has never
// seen them.
var rm1 = migration{
	name: "full-sync-for-alarm-fragments",
	run: func(ctx context.LeafCtx, tx *database.DB) error {
		if err := database.UpdateSystem(tx, consts.SystemLastMaxUSN, 0); err != nil {
			return errors.Wrap(err, "resetting last max usn")
		}
		if err := database.UpdateSystem(tx, consts.SystemLastSyncAt, 0); err != nil {
			return errors.Wrap(err, "resetting last sync time")
		}

		return nil
	},
}
