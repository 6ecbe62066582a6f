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
	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/database"
)

const testUserUUID = "user-uuid-1"

func TestProcessFragments(t *testing.T) {
	p1 := client.SyncFragPage{UUID: "p1", USN: 3}
	p2 := client.SyncFragPage{UUID: "p2", USN: 8}
	f1 := client.SyncFragFolder{UUID: "f1", USN: 4}
	a1 := client.SyncFragAlarm{UUID: "a1", USN: 5}

	fragments := []client.SyncFragment{
		{
			FragMaxUSN:    5,
			UserMaxUSN:    10,
			CurrentTime:   1600000000,
			Pages:         []client.SyncFragPage{p1},
			Folders:       []client.SyncFragFolder{f1},
			Alarms:        []client.SyncFragAlarm{a1},
			ExpungedPages: []string{"p-gone"},
		},
		{
			FragMaxUSN:     10,
			UserMaxUSN:     10,
			CurrentTime:    1600000100,
			Pages:          []client.SyncFragPage{p2},
			ExpungedAlarms: []string{"a-gone"},
		},
	}

	list, err := processFragments(fragments)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, len(list.Pages), 2, "page count mismatch")
	assert.Equal(t, len(list.Folders), 1, "folder count mismatch")
	assert.Equal(t, len(list.Alarms), 1, "alarm count mismatch")
	assert.Equal(t, list.ExpungedPages["p-gone"], true, "expunged page missing")
	assert.Equal(t, list.ExpungedAlarms["a-gone"], true, "expunged alarm missing")
	assert.Equal(t, list.MaxUSN, 10, "max usn mismatch")
	assert.Equal(t, list.UserMaxUSN, 10, "user max usn mismatch")
	assert.Equal(t, list.MaxCurrentTime, int64(1600000100), "max current time mismatch")
	assert.Equal(t, list.getLength(), 6, "length mismatch")
}

func TestStepSyncPage_Insert(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	err := stepSyncPage(db, testUserUUID, client.SyncFragPage{
		UUID:    "p1",
		Title:   "from server",
		Body:    "<p>hi</p>",
		Kind:    "text",
		AddedOn: 1500000000,
		USN:     7,
	})
	if err != nil {
		t.Fatal(err)
	}

	page, ok, err := database.GetPage(db, testUserUUID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, ok, true, "page should be inserted")
	assert.Equal(t, page.Title, "from server", "title mismatch")
	assert.Equal(t, page.USN, 7, "usn mismatch")
	assert.Equal(t, page.Dirty, false, "inserted page should be clean")
}

func TestStepSyncPage_ServerWinsWhenClean(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	p := database.Page{
		UUID:     "p1",
		UserUUID: testUserUUID,
		Title:    "old title",
		Body:     "old body\n",
		Kind:     "text",
		AddedOn:  1500000000,
		USN:      3,
	}
	if err := p.Insert(db); err != nil {
		t.Fatal(err)
	}

	err := stepSyncPage(db, testUserUUID, client.SyncFragPage{
		UUID:     "p1",
		Title:    "new title",
		Body:     "new body\n",
		Kind:     "text",
		EditedOn: 1600000000,
		USN:      4,
	})
	if err != nil {
		t.Fatal(err)
	}

	page, _, err := database.GetPage(db, testUserUUID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, page.Title, "new title", "title mismatch")
	assert.Equal(t, page.Body, "new body\n", "body mismatch")
	assert.Equal(t, page.USN, 4, "usn mismatch")
	assert.Equal(t, page.Dirty, false, "page should be clean")
}

func TestStepSyncPage_DirtyLocalMerges(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	p := database.Page{
		UUID:     "p1",
		UserUUID: testUserUUID,
		Title:    "title",
		Body:     "shared\nlocal\n",
		Kind:     "text",
		AddedOn:  1500000000,
		USN:      3,
		Dirty:    true,
	}
	if err := p.Insert(db); err != nil {
		t.Fatal(err)
	}

	err := stepSyncPage(db, testUserUUID, client.SyncFragPage{
		UUID:     "p1",
		Title:    "title",
		Body:     "shared\nserver\n",
		Kind:     "text",
		EditedOn: 1600000000,
		USN:      4,
	})
	if err != nil {
		t.Fatal(err)
	}

	page, _, err := database.GetPage(db, testUserUUID, "p1")
	if err != nil {
		t.Fatal(err)
	}

	expected := `shared
<<<<<<< Local
local
=======
server
>>>>>>> Server
`
	assert.DeepEqual(t, page.Body, expected, "body mismatch")
	assert.Equal(t, page.USN, 4, "usn mismatch")
	assert.Equal(t, page.Dirty, true, "conflicted page should stay dirty")
}

func TestStepSyncAlarm_DirtyLocalKeepsTrigger(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	a := database.Alarm{
		UUID:          "a1",
		UserUUID:      testUserUUID,
		PageUUID:      "p1",
		NextTriggerAt: sql.NullInt64{Int64: 1700000000, Valid: true},
		AddedOn:       1500000000,
		USN:           3,
		Dirty:         true,
	}
	if err := a.Insert(db); err != nil {
		t.Fatal(err)
	}

	serverTrigger := int64(1800000000)
	notificationID := "n-55"
	err := stepSyncAlarm(db, testUserUUID, client.SyncFragAlarm{
		UUID:               "a1",
		PageUUID:           "p1",
		NextTriggerAt:      &serverTrigger,
		SentCount:          9,
		LastNotificationID: &notificationID,
		EditedOn:           1600000000,
		USN:                4,
	})
	if err != nil {
		t.Fatal(err)
	}

	alarm, _, err := database.GetAlarm(db, testUserUUID, "a1")
	if err != nil {
		t.Fatal(err)
	}

	// the unsynced local trigger edit survives, but the delivery bookkeeping
	// comes from the server
	assert.Equal(t, alarm.NextTriggerAt.Int64, int64(1700000000), "trigger time mismatch")
	assert.Equal(t, alarm.SentCount, 9, "sent count mismatch")
	assert.Equal(t, alarm.LastNotificationID.String, "n-55", "notification id mismatch")
	assert.Equal(t, alarm.Dirty, true, "alarm should stay dirty")
	assert.Equal(t, alarm.USN, 4, "usn mismatch")
}

func TestSyncDeletePage(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	clean := database.Page{UUID: "p-clean", UserUUID: testUserUUID, Kind: "text", AddedOn: 1500000000, USN: 2}
	dirty := database.Page{UUID: "p-dirty", UserUUID: testUserUUID, Kind: "text", AddedOn: 1500000000, USN: 2, Dirty: true}
	if err := clean.Insert(db); err != nil {
		t.Fatal(err)
	}
	if err := dirty.Insert(db); err != nil {
		t.Fatal(err)
	}

	if err := syncDeletePage(db, "p-clean"); err != nil {
		t.Fatal(err)
	}
	if err := syncDeletePage(db, "p-dirty"); err != nil {
		t.Fatal(err)
	}
	if err := syncDeletePage(db, "p-gone"); err != nil {
		t.Fatal(err)
	}

	_, okClean, err := database.GetPage(db, testUserUUID, "p-clean")
	if err != nil {
		t.Fatal(err)
	}
	_, okDirty, err := database.GetPage(db, testUserUUID, "p-dirty")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, okClean, false, "clean page should be expunged")
	assert.Equal(t, okDirty, true, "dirty page should be preserved")
}

func TestSyncDeleteFolder_DetachesPages(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	f := database.Folder{UUID: "f1", UserUUID: testUserUUID, Name: "recipes", AddedOn: 1500000000, USN: 2}
	if err := f.Insert(db); err != nil {
		t.Fatal(err)
	}
	p := database.Page{
		UUID:       "p1",
		UserUUID:   testUserUUID,
		FolderUUID: sql.NullString{String: "f1", Valid: true},
		Kind:       "text",
		AddedOn:    1500000000,
		USN:        2,
	}
	if err := p.Insert(db); err != nil {
		t.Fatal(err)
	}

	if err := syncDeleteFolder(db, "f1"); err != nil {
		t.Fatal(err)
	}

	_, okFolder, err := database.GetFolder(db, testUserUUID, "f1")
	if err != nil {
		t.Fatal(err)
	}
	page, okPage, err := database.GetPage(db, testUserUUID, "p1")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, okFolder, false, "folder should be expunged")
	assert.Equal(t, okPage, true, "page should survive the folder")
	assert.Equal(t, page.FolderUUID.Valid, false, "page should be detached")
}

func TestSyncDeleteFolder_DirtyPagesKeepFolder(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	f := database.Folder{UUID: "f1", UserUUID: testUserUUID, Name: "recipes", AddedOn: 1500000000, USN: 2}
	if err := f.Insert(db); err != nil {
		t.Fatal(err)
	}
	p := database.Page{
		UUID:       "p1",
		UserUUID:   testUserUUID,
		FolderUUID: sql.NullString{String: "f1", Valid: true},
		Kind:       "text",
		AddedOn:    1500000000,
		Dirty:      true,
	}
	if err := p.Insert(db); err != nil {
		t.Fatal(err)
	}

	if err := syncDeleteFolder(db, "f1"); err != nil {
		t.Fatal(err)
	}

	folder, ok, err := database.GetFolder(db, testUserUUID, "f1")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, ok, true, "folder should be preserved")
	assert.Equal(t, folder.Dirty, true, "folder should be marked dirty for re-upload")
}

func TestCleanLocalPages(t *testing.T) {
	db := database.InitTestMemoryDB(t)

	// a synced page missing from the server and a new unsynced page
	stale := database.Page{UUID: "p-stale", UserUUID: testUserUUID, Kind: "text", AddedOn: 1500000000, USN: 5}
	fresh := database.Page{UUID: "p-fresh", UserUUID: testUserUUID, Kind: "text", AddedOn: 1500000000, USN: 0, Dirty: true}
	if err := stale.Insert(db); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Insert(db); err != nil {
		t.Fatal(err)
	}

	list := syncList{
		Pages:         map[string]client.SyncFragPage{},
		ExpungedPages: map[string]bool{},
	}

	if err := cleanLocalPages(db, &list); err != nil {
		t.Fatal(err)
	}

	_, okStale, err := database.GetPage(db, testUserUUID, "p-stale")
	if err != nil {
		t.Fatal(err)
	}
	_, okFresh, err := database.GetPage(db, testUserUUID, "p-fresh")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, okStale, false, "stale page should be cleaned")
	assert.Equal(t, okFresh, true, "unsynced page should be preserved")
}

func TestSaveSyncState(t *testing.T) {
	testCases := []struct {
		serverMaxUSN   int
		userMaxUSN     int
		initialMaxUSN  int
		expectedMaxUSN int
	}{
		// got data: advance
		{serverMaxUSN: 20, userMaxUSN: 20, initialMaxUSN: 10, expectedMaxUSN: 20},
		// empty fragment but server has data: preserve
		{serverMaxUSN: 0, userMaxUSN: 20, initialMaxUSN: 10, expectedMaxUSN: 10},
		// empty server: reset
		{serverMaxUSN: 0, userMaxUSN: 0, initialMaxUSN: 10, expectedMaxUSN: 0},
	}

	for _, tc := range testCases {
		db := database.InitTestMemoryDB(t)
		database.MustExec(t, "setting initial max usn", db,
			"UPDATE system SET value = ? WHERE key = ?", tc.initialMaxUSN, consts.SystemLastMaxUSN)

		if err := saveSyncState(db, 1600000000, tc.serverMaxUSN, tc.userMaxUSN); err != nil {
			t.Fatal(err)
		}

		var maxUSN int
		var syncAt int64
		database.MustScan(t, "getting max usn",
			db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemLastMaxUSN), &maxUSN)
		database.MustScan(t, "getting sync time",
			db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemLastSyncAt), &syncAt)

		assert.Equal(t, maxUSN, tc.expectedMaxUSN, "max usn mismatch")
		assert.Equal(t, syncAt, int64(1600000000), "sync time mismatch")
	}
}

func TestPrepareEmptyServerSync(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	database.MustExec(t, "setting max usn", db,
		"UPDATE system SET value = ? WHERE key = ?", 42, consts.SystemLastMaxUSN)

	p := database.Page{UUID: "p1", UserUUID: testUserUUID, Kind: "text", AddedOn: 1500000000, USN: 9}
	if err := p.Insert(db); err != nil {
		t.Fatal(err)
	}

	if err := prepareEmptyServerSync(db); err != nil {
		t.Fatal(err)
	}

	page, _, err := database.GetPage(db, testUserUUID, "p1")
	if err != nil {
		t.Fatal(err)
	}
	var maxUSN int
	database.MustScan(t, "getting max usn",
		db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemLastMaxUSN), &maxUSN)

	assert.Equal(t, page.USN, 0, "page usn should be reset")
	assert.Equal(t, page.Dirty, true, "page should be dirty")
	assert.Equal(t, maxUSN, 0, "last max usn should be reset")
}
