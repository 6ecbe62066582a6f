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

package app

import (
	"testing"
	"time"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestCreateAlarm(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600

		// Execute
		alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating alarm"))
		}

		// Test
		assert.Equal(t, alarm.PageUUID, page.UUID, "page uuid mismatch")
		assert.Equal(t, *alarm.NextTriggerAt, triggerAt, "next_trigger_at mismatch")
		assert.Equal(t, alarm.USN, 2, "usn mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 2, "user max_usn mismatch")
	})

	t.Run("missing page uuid", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		_, err := a.CreateAlarm(user, CreateAlarmParams{})

		// Test
		assert.Equal(t, err, ErrPageUUIDRequired, "error mismatch")

		var alarmCount int64
		testutils.MustExec(t, db.Model(&database.Alarm{}).Count(&alarmCount), "counting alarms")
		assert.Equal(t, alarmCount, int64(0), "alarm count mismatch")
	})
}

func TestUpdateAlarm(t *testing.T) {
	t.Run("reschedule", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600
		alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		newTriggerAt := triggerAt + 7200

		// Execute
		tx := db.Begin()
		updated, err := a.UpdateAlarm(tx, user, alarm, UpdateAlarmParams{NextTriggerAt: &newTriggerAt})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating alarm"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, *updated.NextTriggerAt, newTriggerAt, "next_trigger_at mismatch")
		assert.Equal(t, updated.USN, 3, "usn mismatch")
	})

	t.Run("nil trigger leaves schedule alone", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600
		alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		// Execute
		tx := db.Begin()
		updated, err := a.UpdateAlarm(tx, user, alarm, UpdateAlarmParams{})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating alarm"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, *updated.NextTriggerAt, triggerAt, "next_trigger_at should be unchanged")
	})

	t.Run("clear trigger", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600
		alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		// Execute
		tx := db.Begin()
		updated, err := a.UpdateAlarm(tx, user, alarm, UpdateAlarmParams{ClearTrigger: true})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating alarm"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, updated.NextTriggerAt, (*int64)(nil), "next_trigger_at should be cleared")

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		assert.Equal(t, postAlarm.NextTriggerAt, (*int64)(nil), "stored next_trigger_at should be cleared")
	})

	t.Run("not owner", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		page, err := a.CreatePage(owner, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600
		alarm, err := a.CreateAlarm(owner, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		// Execute
		tx := db.Begin()
		_, err = a.UpdateAlarm(tx, intruder, alarm, UpdateAlarmParams{ClearTrigger: true})
		tx.Rollback()

		// Test
		assert.Equal(t, err, ErrNotAllowed, "error mismatch")
	})
}

func TestDeleteAlarm(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	// Setup
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing page"))
	}

	triggerAt := a.Clock.Now().Unix() + 3600
	alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing alarm"))
	}

	// Execute
	tx := db.Begin()
	if _, err := a.DeleteAlarm(tx, user, alarm); err != nil {
		tx.Rollback()
		t.Fatal(errors.Wrap(err, "deleting alarm"))
	}
	tx.Commit()

	// Test
	var postAlarm database.Alarm
	testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")

	assert.Equal(t, postAlarm.Deleted, true, "alarm Deleted mismatch")
	assert.Equal(t, postAlarm.NextTriggerAt, (*int64)(nil), "next_trigger_at should be cleared")
	assert.Equal(t, postAlarm.InFlightAt, (*time.Time)(nil), "in_flight_at should be cleared")
	assert.Equal(t, postAlarm.USN, 3, "alarm usn mismatch")
}
