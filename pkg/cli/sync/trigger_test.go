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
	"database/sql"
	"testing"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/cli/database"
)

func TestNotifyAndClearPending(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	pending, err := Pending(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pending, false, "fresh replica should have no pending sync")

	Notify(db, "add-page")

	pending, err = Pending(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pending, true, "pending flag should be set")

	if err := ClearPending(db); err != nil {
		t.Fatal(err)
	}

	pending, err = Pending(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pending, false, "pending flag should be cleared")
}

func TestDeleteAlarmsForPages(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	a := database.Alarm{
		UUID:          "a1",
		UserUUID:      testUserUUID,
		PageUUID:      "p1",
		NextTriggerAt: sql.NullInt64{Int64: 1700000000, Valid: true},
		AddedOn:       1500000000,
	}
	if err := a.Insert(db); err != nil {
		t.Fatal(err)
	}

	count, err := DeleteAlarmsForPages(db, testUserUUID, []string{"p1"}, 1600000000)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, count, 1, "affected count mismatch")

	pending, err := Pending(db)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pending, true, "deleting alarms should request a sync")

	// zero matches is a no-op and does not request a sync
	db2 := database.InitTestMemoryDB(t)
	count, err = DeleteAlarmsForPages(db2, testUserUUID, []string{"p-gone"}, 1600000000)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, count, 0, "affected count mismatch")

	pending, err = Pending(db2)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pending, false, "no-op delete should not request a sync")
}
