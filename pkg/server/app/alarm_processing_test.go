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
	"github.com/leafnotes/leaf/pkg/clock"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
)

func setupProcessingAlarm(t *testing.T, a *App, user database.User, triggerAt int64) database.Alarm {
	page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing page"))
	}

	alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing alarm"))
	}

	return alarm
}

func TestGetDueAlarms(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	// Setup
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
	now := a.Clock.Now().Unix()

	page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing page"))
	}

	pastTrigger := now - 60
	earlierTrigger := now - 3600
	futureTrigger := now + 3600

	past, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &pastTrigger})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing past alarm"))
	}
	earlier, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &earlierTrigger})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing earlier alarm"))
	}
	if _, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &futureTrigger}); err != nil {
		t.Fatal(errors.Wrap(err, "preparing future alarm"))
	}
	if _, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID}); err != nil {
		t.Fatal(errors.Wrap(err, "preparing unscheduled alarm"))
	}

	deletedTrigger := now - 120
	deleted, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &deletedTrigger})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing deleted alarm"))
	}
	tx := db.Begin()
	if _, err := a.DeleteAlarm(tx, user, deleted); err != nil {
		tx.Rollback()
		t.Fatal(errors.Wrap(err, "deleting alarm"))
	}
	tx.Commit()

	// Execute
	got, err := a.GetDueAlarms()
	if err != nil {
		t.Fatal(errors.Wrap(err, "getting due alarms"))
	}

	// Test
	assert.Equal(t, len(got), 2, "due alarm count mismatch")

	// ordered by trigger time, earliest first
	assert.Equal(t, got[0].UUID, earlier.UUID, "first due alarm mismatch")
	assert.Equal(t, got[1].UUID, past.UUID, "second due alarm mismatch")
}

func TestClaimAlarm(t *testing.T) {
	t.Run("single claim", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		alarm := setupProcessingAlarm(t, &a, user, a.Clock.Now().Unix()-60)

		// Execute
		ok, err := a.ClaimAlarm(&alarm)
		if err != nil {
			t.Fatal(errors.Wrap(err, "claiming alarm"))
		}

		// Test
		assert.Equal(t, ok, true, "claim should have succeeded")

		if alarm.InFlightAt == nil {
			t.Fatal("in_flight_at should have been set on the alarm")
		}

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		if postAlarm.InFlightAt == nil {
			t.Error("in_flight_at should have been persisted")
		}
	})

	t.Run("already claimed", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		alarm := setupProcessingAlarm(t, &a, user, a.Clock.Now().Unix()-60)

		if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
			t.Fatal("preparing the first claim")
		}

		// Execute
		other := alarm
		ok, err := a.ClaimAlarm(&other)
		if err != nil {
			t.Fatal(errors.Wrap(err, "claiming alarm"))
		}

		// Test
		assert.Equal(t, ok, false, "second claim should have been refused")
	})

	t.Run("stale claim is taken over", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		c := a.Clock.(*clock.Mock)

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		alarm := setupProcessingAlarm(t, &a, user, c.Now().Unix()-60)

		// a processor that dies mid-flight never releases its claim
		if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
			t.Fatal("preparing the first claim")
		}

		c.SetNow(c.Now().Add(48 * time.Hour))

		// Execute
		ok, err := a.ClaimAlarm(&alarm)
		if err != nil {
			t.Fatal(errors.Wrap(err, "reclaiming alarm"))
		}

		// Test
		assert.Equal(t, ok, true, "abandoned claim should be reclaimable")

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		if postAlarm.InFlightAt == nil {
			t.Fatal("in_flight_at should have been persisted")
		}
		assert.Equal(t, postAlarm.InFlightAt.Unix(), c.Now().Unix(), "claim time should have been refreshed")
	})

	t.Run("claimable again after release", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		alarm := setupProcessingAlarm(t, &a, user, a.Clock.Now().Unix()-60)

		if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
			t.Fatal("preparing the first claim")
		}

		// Execute
		if err := a.ReleaseAlarmClaim(alarm); err != nil {
			t.Fatal(errors.Wrap(err, "releasing claim"))
		}
		ok, err := a.ClaimAlarm(&alarm)
		if err != nil {
			t.Fatal(errors.Wrap(err, "reclaiming alarm"))
		}

		// Test
		assert.Equal(t, ok, true, "alarm should be claimable after release")
	})
}

func TestRotateAlarmNotificationID(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	// Setup
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
	alarm := setupProcessingAlarm(t, &a, user, a.Clock.Now().Unix()-60)

	// Execute
	first, err := a.RotateAlarmNotificationID(&alarm)
	if err != nil {
		t.Fatal(errors.Wrap(err, "rotating notification id"))
	}
	second, err := a.RotateAlarmNotificationID(&alarm)
	if err != nil {
		t.Fatal(errors.Wrap(err, "rotating notification id again"))
	}

	// Test
	assert.NotEqual(t, first, "", "notification id should not be empty")
	assert.NotEqual(t, second, first, "each rotation should mint a fresh id")

	var postAlarm database.Alarm
	testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
	assert.Equal(t, *postAlarm.LastNotificationID, second, "persisted notification id mismatch")
}

func TestMarkAlarmSent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		triggerAt := a.Clock.Now().Unix() - 60
		alarm := setupProcessingAlarm(t, &a, user, triggerAt)

		if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
			t.Fatal("preparing the claim")
		}

		var preUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&preUser), "finding user")

		// Execute
		if err := a.MarkAlarmSent(alarm); err != nil {
			t.Fatal(errors.Wrap(err, "marking alarm sent"))
		}

		// Test
		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")

		assert.Equal(t, *postAlarm.NextTriggerAt, triggerAt+alarmRepeatInterval, "next trigger mismatch")
		assert.Equal(t, postAlarm.SentCount, 1, "sent count mismatch")
		assert.Equal(t, postAlarm.InFlightAt, (*time.Time)(nil), "claim should have been released")
		assert.Equal(t, postAlarm.USN, preUser.MaxUSN+1, "alarm usn mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, preUser.MaxUSN+1, "user max_usn mismatch")
	})

	t.Run("no trigger", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}
		alarm, err := a.CreateAlarm(user, CreateAlarmParams{PageUUID: page.UUID})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		// Execute
		err = a.MarkAlarmSent(alarm)

		// Test
		if err == nil {
			t.Fatal("expected an error for an alarm without a trigger")
		}
	})
}

func TestReleaseAlarmClaim(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	// Setup
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
	alarm := setupProcessingAlarm(t, &a, user, a.Clock.Now().Unix()-60)

	if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
		t.Fatal("preparing the claim")
	}
	nid, err := a.RotateAlarmNotificationID(&alarm)
	if err != nil {
		t.Fatal(errors.Wrap(err, "rotating notification id"))
	}

	// Execute
	if err := a.ReleaseAlarmClaim(alarm); err != nil {
		t.Fatal(errors.Wrap(err, "releasing claim"))
	}

	// Test
	var postAlarm database.Alarm
	testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")

	assert.Equal(t, postAlarm.InFlightAt, (*time.Time)(nil), "claim should have been released")
	// the notification id survives so that a retry reuses it
	assert.Equal(t, *postAlarm.LastNotificationID, nid, "notification id should be kept")
	assert.Equal(t, postAlarm.SentCount, 0, "sent count should be unchanged")
}
