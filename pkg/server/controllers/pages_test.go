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

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestCreatePage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		pageUUID := testutils.MustUUID(t)

		// Execute
		dat := fmt.Sprintf(`{"uuid": %q, "title": "day one", "body": "a quiet morning"}`, pageUUID)
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusCreated, "status code mismatch")

		var got CreatePageResp
		if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
			t.Fatal(errors.Wrap(err, "decoding payload"))
		}

		// the client-chosen uuid is preserved
		assert.Equal(t, got.Result.UUID, pageUUID, "uuid mismatch")
		assert.Equal(t, got.Result.Title, "day one", "title mismatch")
		assert.Equal(t, got.Result.Body, "a quiet morning", "body mismatch")
		assert.Equal(t, got.Result.Kind, database.PageKindText, "kind mismatch")
		assert.Equal(t, got.Result.USN, 1, "usn mismatch")

		var pageCount int64
		var page database.Page
		testutils.MustExec(t, db.Model(&database.Page{}).Count(&pageCount), "counting pages")
		testutils.MustExec(t, db.Where("uuid = ?", pageUUID).First(&page), "finding page")

		assert.Equal(t, pageCount, int64(1), "page count mismatch")
		assert.Equal(t, page.USN, 1, "page usn mismatch")
		assert.Equal(t, page.Client, "api", "page client mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 1, "user max_usn mismatch")
		assert.NotEqual(t, postUser.FullSyncBefore, int64(0), "full_sync_before should have been stamped")
	})

	t.Run("cli client tag", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", `{"title": "from the cli"}`)
		req.Header.Set("CLI-Version", "0.1.0")
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusCreated, "status code mismatch")

		var page database.Page
		testutils.MustExec(t, db.Where("user_id = ?", user.ID).First(&page), "finding page")
		assert.Equal(t, page.Client, "cli", "page client mismatch")
	})

	t.Run("duplicate uuid", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, app.CreatePageParams{Title: "existing"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		dat := fmt.Sprintf(`{"uuid": %q, "title": "duplicate"}`, page.UUID)
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		// the client retries after resolving the conflict locally
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusConflict, "status code mismatch")

		var pageCount int64
		testutils.MustExec(t, db.Model(&database.Page{}).Count(&pageCount), "counting pages")
		assert.Equal(t, pageCount, int64(1), "page count mismatch")
	})

	t.Run("into folder", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		folder, err := a.CreateFolder(user, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}

		// Execute
		dat := fmt.Sprintf(`{"folder_uuid": %q, "title": "day one"}`, folder.UUID)
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusCreated, "status code mismatch")

		var postFolder database.Folder
		testutils.MustExec(t, db.Where("uuid = ?", folder.UUID).First(&postFolder), "finding folder")
		assert.Equal(t, postFolder.PageCount, 1, "folder page count mismatch")
	})

	t.Run("nonexistent folder", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		dat := fmt.Sprintf(`{"folder_uuid": %q, "title": "day one"}`, testutils.MustUUID(t))
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "status code mismatch")

		var pageCount int64
		testutils.MustExec(t, db.Model(&database.Page{}).Count(&pageCount), "counting pages")
		assert.Equal(t, pageCount, int64(0), "page count mismatch")
	})

	t.Run("another user's folder", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		folder, err := a.CreateFolder(owner, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing folder"))
		}

		// Execute
		dat := fmt.Sprintf(`{"folder_uuid": %q, "title": "day one"}`, folder.UUID)
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", dat)
		res := testutils.HTTPAuthDo(t, db, req, intruder)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "status code mismatch")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "POST", "/api/v1/pages", `{"title": "day one"}`)
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status code mismatch")
	})
}

func TestUpdatePage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, app.CreatePageParams{Title: "day one", Body: "a quiet morning"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		dat := `{"title": "day two", "body": "a loud afternoon"}`
		req := testutils.MakeReq(server.URL, "PATCH", fmt.Sprintf("/api/v1/pages/%s", page.UUID), dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status code mismatch")

		var got UpdatePageResp
		if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
			t.Fatal(errors.Wrap(err, "decoding payload"))
		}

		assert.Equal(t, got.Status, http.StatusOK, "status field mismatch")
		assert.Equal(t, got.Result.Title, "day two", "title mismatch")
		assert.Equal(t, got.Result.Body, "a loud afternoon", "body mismatch")
		assert.Equal(t, got.Result.USN, 2, "usn mismatch")

		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, postPage.Title, "day two", "page title mismatch")
		assert.Equal(t, postPage.USN, 2, "page usn mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 2, "user max_usn mismatch")
	})

	t.Run("move between folders refreshes page counts", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		src, err := a.CreateFolder(user, "journal")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing source folder"))
		}
		dst, err := a.CreateFolder(user, "archive")
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing destination folder"))
		}
		page, err := a.CreatePage(user, app.CreatePageParams{FolderUUID: &src.UUID, Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		dat := fmt.Sprintf(`{"folder_uuid": %q}`, dst.UUID)
		req := testutils.MakeReq(server.URL, "PATCH", fmt.Sprintf("/api/v1/pages/%s", page.UUID), dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status code mismatch")

		var postSrc, postDst database.Folder
		testutils.MustExec(t, db.Where("uuid = ?", src.UUID).First(&postSrc), "finding source folder")
		testutils.MustExec(t, db.Where("uuid = ?", dst.UUID).First(&postDst), "finding destination folder")

		assert.Equal(t, postSrc.PageCount, 0, "source folder page count mismatch")
		assert.Equal(t, postDst.PageCount, 1, "destination folder page count mismatch")

		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, *postPage.FolderUUID, dst.UUID, "page folder mismatch")
	})

	t.Run("another user's page", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		page, err := a.CreatePage(owner, app.CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		dat := `{"title": "hijacked"}`
		req := testutils.MakeReq(server.URL, "PATCH", fmt.Sprintf("/api/v1/pages/%s", page.UUID), dat)
		res := testutils.HTTPAuthDo(t, db, req, intruder)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "status code mismatch")

		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, postPage.Title, "day one", "page title should not have been updated")
	})

	t.Run("nonexistent page", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		dat := `{"title": "day two"}`
		req := testutils.MakeReq(server.URL, "PATCH", fmt.Sprintf("/api/v1/pages/%s", testutils.MustUUID(t)), dat)
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "status code mismatch")
	})
}

func TestDeletePage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		page, err := a.CreatePage(user, app.CreatePageParams{Title: "day one", Body: "a quiet morning"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		triggerAt := a.Clock.Now().Unix() + 3600
		alarm, err := a.CreateAlarm(user, app.CreateAlarmParams{PageUUID: page.UUID, NextTriggerAt: &triggerAt})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing alarm"))
		}

		// Execute
		req := testutils.MakeReq(server.URL, "DELETE", fmt.Sprintf("/api/v1/pages/%s", page.UUID), "")
		res := testutils.HTTPAuthDo(t, db, req, user)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status code mismatch")

		var got DeletePageResp
		if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
			t.Fatal(errors.Wrap(err, "decoding payload"))
		}
		assert.Equal(t, got.Status, http.StatusOK, "status field mismatch")

		// the page remains as a tombstone with its content cleared
		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, postPage.Deleted, true, "page Deleted mismatch")
		assert.Equal(t, postPage.Title, "", "page title should be cleared")
		assert.Equal(t, postPage.Body, "", "page body should be cleared")

		// the alarm on the page is deleted in the same request
		var postAlarm database.Alarm
		testutils.MustExec(t, db.Where("uuid = ?", alarm.UUID).First(&postAlarm), "finding alarm")
		assert.Equal(t, postAlarm.Deleted, true, "alarm Deleted mismatch")
		assert.Equal(t, postAlarm.NextTriggerAt, (*int64)(nil), "alarm trigger should be cleared")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")
		assert.Equal(t, postUser.MaxUSN, 4, "user max_usn mismatch")
	})

	t.Run("another user's page", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := app.NewTest()
		a.DB = db
		server := MustNewServer(t, &a)
		defer server.Close()

		owner := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		intruder := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		page, err := a.CreatePage(owner, app.CreatePageParams{Title: "day one"})
		if err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		req := testutils.MakeReq(server.URL, "DELETE", fmt.Sprintf("/api/v1/pages/%s", page.UUID), "")
		res := testutils.HTTPAuthDo(t, db, req, intruder)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusNotFound, "status code mismatch")

		var postPage database.Page
		testutils.MustExec(t, db.Where("uuid = ?", page.UUID).First(&postPage), "finding page")
		assert.Equal(t, postPage.Deleted, false, "page should not have been deleted")
	})
}
