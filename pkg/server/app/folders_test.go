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

func TestCreateFolder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		folder, err := a.CreateFolder(user, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating folder"))
		}

		// Test
		assert.Equal(t, folder.Name, "journal", "name mismatch")
		assert.Equal(t, folder.USN, 1, "usn mismatch")
		assert.NotEqual(t, folder.UUID, "", "uuid should have been generated")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 1, "user max_usn mismatch")
	})

	t.Run("empty name", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		_, err := a.CreateFolder(user, "")

		// Test
		assert.Equal(t, err, ErrFolderNameRequired, "error mismatch")

		var folderCount int64
		testutils.MustExec(t, db.Model(&database.Folder{}).Count(&folderCount), "counting folders")
		assert.Equal(t, folderCount, int64(0), "folder count mismatch")
	})
}

func TestUpdateFolder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		folder, err := a.CreateFolder(user, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}

		newName := "diary"

		// Execute
		tx := db.Begin()
		updated, err := a.UpdateFolder(tx, user, folder, UpdateFolderParams{Name: &newName})
		if err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "updating folder"))
		}
		tx.Commit()

		// Test
		assert.Equal(t, updated.Name, "diary", "name mismatch")
		assert.Equal(t, updated.USN, 2, "usn mismatch")
	})

	t.Run("not owner", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		folder, err := a.CreateFolder(owner, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}

		newName := "hijacked"

		// Execute
		tx := db.Begin()
		_, err = a.UpdateFolder(tx, intruder, folder, UpdateFolderParams{Name: &newName})
		tx.Rollback()

		// Test
		assert.Equal(t, err, ErrNotAllowed, "error mismatch")
	})
}

func TestDeleteFolder(t *testing.T) {
	t.Run("detaches pages", func(t *testing.T) {
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
		if _, err := a.DeleteFolder(tx, user, folder); err != nil {
			tx.Rollback()
			t.Fatal(errors.Wrap(err, "deleting folder"))
		}
		tx.Commit()

		// Test
		var postFolder database.Folder
		testutils.MustExec(t, db.Where("uuid = ?", folder.UUID).First(&postFolder), "finding folder")
		assert.Equal(t, postFolder.Deleted, true, "folder Deleted mismatch")
		assert.Equal(t, postFolder.Name, "", "folder name should be cleared")

		// the page survives with its own fresh usn, then the tombstone takes the last
		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, postPage.Deleted, false, "page should not have been deleted")
		assert.Equal(t, postPage.FolderUUID, (*string)(nil), "page should have been detached")
		assert.Equal(t, postPage.USN, 3, "page usn mismatch")
		assert.Equal(t, postFolder.USN, 4, "folder usn mismatch")
	})

	t.Run("not owner", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		folder, err := a.CreateFolder(owner, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}

		// Execute
		tx := db.Begin()
		_, err = a.DeleteFolder(tx, intruder, folder)
		tx.Rollback()

		// Test
		assert.Equal(t, err, ErrNotAllowed, "error mismatch")
	})
}

func TestRefreshFolderPageCount(t *testing.T) {
	db := testutils.InitMemoryDB(t)

	// Setup
	a := NewTest()
	a.DB = db

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

	folder, err := a.CreateFolder(user, "journal")
	if err != nil {
		t.Fatal(errors.Wrap(err, "preparing folder"))
	}
	for _, title := range []string{"day one", "day two"} {
		if _, err := a.CreatePage(user, CreatePageParams{FolderUUID: &folder.UUID, Title: title}); err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}
	}

	// drift the derived count on purpose
	testutils.MustExec(t, db.Model(&database.Folder{}).Where("uuid = ?", folder.UUID).Update("page_count", 9), "drifting page count")

	// Execute
	tx := db.Begin()
	if err := a.RefreshFolderPageCount(tx, folder.UUID); err != nil {
		tx.Rollback()
		t.Fatal(errors.Wrap(err, "refreshing page count"))
	}
	tx.Commit()

	// Test
	var postFolder database.Folder
	testutils.MustExec(t, db.Where("uuid = ?", folder.UUID).First(&postFolder), "finding folder")
	assert.Equal(t, postFolder.PageCount, 2, "page count mismatch")
}
