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

package job

import (
	"strings"
	"testing"
	"time"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func TestNextHourBoundary(t *testing.T) {
	testCases := []struct {
		input    time.Time
		expected time.Time
	}{
		{
			input:    time.Date(2020, time.March, 1, 10, 0, 0, 0, time.UTC),
			expected: time.Date(2020, time.March, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2020, time.March, 1, 10, 0, 0, 1, time.UTC),
			expected: time.Date(2020, time.March, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2020, time.March, 1, 10, 59, 59, 0, time.UTC),
			expected: time.Date(2020, time.March, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2020, time.March, 1, 23, 30, 0, 0, time.UTC),
			expected: time.Date(2020, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.input.Format(time.RFC3339), func(t *testing.T) {
			got := NextHourBoundary(tc.input)

			assert.Equal(t, got, tc.expected, "boundary mismatch")
		})
	}
}

func setupDueAlarm(t *testing.T, db *gorm.DB, a *app.App, title string) (database.User, database.Alarm) {
	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	page, err := a.CreatePage(user, app.CreatePageParams{Title: title})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing page"))
	}

	triggerAt := a.Clock.Now().Unix() - 60
	alarm, err := a.CreateAlarm(user, app.CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing alarm"))
	}

	return user, alarm
}

func TestCheckAlarms(t *testing.T) {
	t.Run("delivers due alarms", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db

		backend := &testutils.MockEmailbackendImplementation{}
		a.EmailBackend = backend

		user, alarm := setupDueAlarm(t, db, &a, "day one")
		triggerAt := *alarm.NextTriggerAt

		runner := NewRunner(&a, true)

		// Execute
		if err := runner.CheckAlarms(); err != nil {
			t.Fatal(errors.Wrap(err, "checking alarms"))
		}

		// Test
		assert.Equal(t, len(backend.Emails), 1, "email count mismatch")

		email := backend.Emails[0]
		assert.DeepEqual(t, email.To, []string{user.Email.String}, "email To mismatch")
		if !strings.Contains(email.Body, "day one") {
			t.Error("email body should mention the page title")
		}

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")

		assert.Equal(t, *postAlarm.NextTriggerAt, triggerAt+60*60*24, "next trigger mismatch")
		assert.Equal(t, postAlarm.SentCount, 1, "sent count mismatch")
		assert.Equal(t, postAlarm.InFlightAt, (*time.Time)(nil), "claim should have been released")

		// the notification id in the email matches the one persisted before dispatch
		if postAlarm.LastNotificationID == nil {
			t.Fatal("notification id should have been stamped")
		}
		if !strings.Contains(email.Body, *postAlarm.LastNotificationID) {
			t.Error("email body should carry the persisted notification id")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db

		backend := &testutils.MockEmailbackendImplementation{}
		a.EmailBackend = backend

		_, alarm := setupDueAlarm(t, db, &a, "day one")

		runner := NewRunner(&a, false)

		// Execute
		if err := runner.CheckAlarms(); err != nil {
			t.Fatal(errors.Wrap(err, "checking alarms"))
		}

		// Test
		assert.Equal(t, len(backend.Emails), 0, "no email should have been sent")

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		assert.Equal(t, postAlarm.SentCount, 0, "alarm should not have been processed")
	})

	t.Run("delivery failure releases the claim", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db

		backend := &testutils.MockEmailbackendImplementation{Err: errors.New("smtp unavailable")}
		a.EmailBackend = backend

		_, alarm := setupDueAlarm(t, db, &a, "day one")
		triggerAt := *alarm.NextTriggerAt

		runner := NewRunner(&a, true)

		// Execute
		if err := runner.CheckAlarms(); err != nil {
			t.Fatal(errors.Wrap(err, "checking alarms"))
		}

		// Test
		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")

		// the firing is not consumed and the claim is released for the retry
		assert.Equal(t, *postAlarm.NextTriggerAt, triggerAt, "next trigger should be unchanged")
		assert.Equal(t, postAlarm.SentCount, 0, "sent count should be unchanged")
		assert.Equal(t, postAlarm.InFlightAt, (*time.Time)(nil), "claim should have been released")

		// the notification id is kept so that the retry redelivers with the same id
		if postAlarm.LastNotificationID == nil {
			t.Error("notification id should have been kept for the retry")
		}
	})

	t.Run("skips claimed alarms", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db

		backend := &testutils.MockEmailbackendImplementation{}
		a.EmailBackend = backend

		_, alarm := setupDueAlarm(t, db, &a, "day one")

		if ok, err := a.ClaimAlarm(&alarm); err != nil || !ok {
			t.Fatal("preparing the claim")
		}

		runner := NewRunner(&a, true)

		// Execute
		if err := runner.CheckAlarms(); err != nil {
			t.Fatal(errors.Wrap(err, "checking alarms"))
		}

		// Test
		assert.Equal(t, len(backend.Emails), 0, "no email should have been sent")

		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		assert.Equal(t, postAlarm.SentCount, 0, "alarm should not have been processed")
	})
}
