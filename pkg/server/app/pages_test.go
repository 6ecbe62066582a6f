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

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestCreatePage(t *testing.T) {
	t.Run("bumps usn", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		p1, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating first page"))
		}
		p2, err := a.CreatePage(user, CreatePageParams{Title: "day two"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating second page"))
		}

		// Test
		assert.Equal(t, p1.USN, 1, "first page usn mismatch")
		assert.Equal(t, p2.USN, 2, "second page usn mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 2, "user max_usn mismatch")
	})

	t.Run("stamps full_sync_before once", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		if _, err := a.CreatePage(user, CreatePageParams{Title: "day one"}); err != nil {
			t.Fatal(errors.Wrap(err, "creating first page"))
		}

		var afterFirst database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&afterFirst), "finding user")

		if _, err := a.CreatePage(user, CreatePageParams{Title: "day two"}); err != nil {
			t.Fatal(errors.Wrap(err, "creating second page"))
		}

		var afterSecond database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&afterSecond), "finding user")

		// Test
		// the first mutation ever stamps full_sync_before; later ones leave it alone
		assert.NotEqual(t, afterFirst.FullSyncBefore, int64(0), "full_sync_before should have been stamped")
		assert.Equal(t, afterSecond.FullSyncBefore, afterFirst.FullSyncBefore, "full_sync_before should not change again")
	})

	t.Run("generates uuid when absent", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating page"))
		}

		// Test
		assert.NotEqual(t, page.UUID, "", "uuid should have been generated")
	})

	t.Run("keeps client uuid", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		uuid := testutils.MustUUID(t)

		// Execute
		page, err := a.CreatePage(user, CreatePageParams{UUID: uuid, Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating page"))
		}

		// Test
		assert.Equal(t, page.UUID, uuid, "uuid mismatch")
	})

	t.Run("rejects malformed uuid", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		_, err := a.CreatePage(user, CreatePageParams{UUID: "not-a-uuid", Title: "day one"})

		// Test
		if err == nil {
			t.Fatal("expected an error for a malformed uuid")
		}

		var pageCount int64
		testutils.MustExec(t, db.Model(&database.Page{}).Count(&pageCount), "counting pages")
		assert.Equal(t, pageCount, int64(0), "page count mismatch")
	})

	t.Run("defaults kind to text", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating page"))
		}

		// Test
		assert.Equal(t, page.Kind, database.PageKindText, "kind mismatch")
	})

	t.Run("sanitizes body", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		page, err := a.CreatePage(user, CreatePageParams{
			Title: "day one",
			Body:  `<p>hello</p><script>alert(1)</script>`,
		})
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating page"))
		}

		// Test
		assert.Equal(t, page.Body, "<p>hello</p>", "body mismatch")
	})
}

func TestUpdatePage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one", Body: "a quiet morning"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		newTitle := "day two"

		// Execute
		tx := db.Begin()
		updated, err := a.UpdatePage(tx, user, page, UpdatePageParams{Title: &newTitle})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating page"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, updated.Title, "day two", "title mismatch")
		assert.Equal(t, updated.Body, "a quiet morning", "body should be unchanged")
		assert.Equal(t, updated.USN, 2, "usn mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 2, "user max_usn mismatch")
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

		newTitle := "hijacked"

		// Execute
		tx := db.Begin()
		_, err = a.UpdatePage(tx, intruder, page, UpdatePageParams{Title: &newTitle})
		tx.Rollback()

		// Test
		assert.Equal(t, err, ErrNotAllowed, "error mismatch")
	})

	t.Run("undeletes a tombstone", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		tx := db.Begin()
		page, err = a.DeletePage(tx, user, page)
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "deleting page"))
		}
		tx.Commit()

		newTitle := "day one again"

		// Execute
		// an update resurrects the page so that an offline edit wins over a deletion
		tx = db.Begin()
		updated, err := a.UpdatePage(tx, user, page, UpdatePageParams{Title: &newTitle})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating page"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, updated.Deleted, false, "page should have been undeleted")
		assert.Equal(t, updated.Title, "day one again", "title mismatch")
	})
}

func TestDeletePage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, CreatePageParams{Title: "day one", Body: "a quiet morning"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		tx := db.Begin()
		if _, err := a.DeletePage(tx, user, page); err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "deleting page"))
		}
		tx.Commit()

		// Test
		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")

		assert.Equal(t, postPage.Deleted, true, "page Deleted mismatch")
		assert.Equal(t, postPage.Title, "", "page title should be cleared")
		assert.Equal(t, postPage.Body, "", "page body should be cleared")
		assert.Equal(t, postPage.USN, 2, "page usn mismatch")
	})

	t.Run("deletes alarms on the page", func(t *testing.T) {
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
		if _, err := a.DeletePage(tx, user, page); err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "deleting page"))
		}
		tx.Commit()

		// Test
		// the alarm tombstone gets a lower usn than the page tombstone
		var postAlarm database.Alarm
		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")

		assert.Equal(t, postAlarm.Deleted, true, "alarm Deleted mismatch")
		assert.Equal(t, postAlarm.USN, 3, "alarm usn mismatch")
		assert.Equal(t, postPage.USN, 4, "page usn mismatch")
	})

	t.Run("refreshes folder page count", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		folder, err := a.CreateFolder(user, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}
		page, err := a.CreatePage(user, CreatePageParams{FolderUUID: &folder.UUID, Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		tx := db.Begin()
		if _, err := a.DeletePage(tx, user, page); err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "deleting page"))
		}
		tx.Commit()

		// Test
		var postFolder database.Folder
		testutils.MustExec(t, db.Where("uuid = ?", folder.UUID).First(&postFolder), "finding folder")
		assert.Equal(t, postFolder.PageCount, 0, "folder page count mismatch")
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

		// Execute
		tx := db.Begin()
		_, err = a.DeletePage(tx, intruder, page)
		tx.Rollback()

		// Test
		assert.Equal(t, err, ErrNotAllowed, "error mismatch")
	})
}
