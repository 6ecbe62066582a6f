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

// Package sync reconciles the local replica with the server. The server is
// the authority: every accepted change is assigned an update sequence number
// (USN) and clients converge by replaying changes past the last USN they saw.
package sync

import (
	"database/sql"
	"fmt"

	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/ui"
	"github.com/pkg/errors"
)

// ErrNotLoggedIn is an error for syncing without a session
var ErrNotLoggedIn = errors.New("not logged in")

const (
	modeInsert = iota
	modeUpdate
)

func getLastSyncAt(tx *database.DB) (int, error) {
	var ret int

	if err := database.GetSystem(tx, consts.SystemLastSyncAt, &ret); err != nil {
		return ret, errors.Wrap(err, "querying last sync time")
	}

	return ret, nil
}

func getLastMaxUSN(tx *database.DB) (int, error) {
	var ret int

	if err := database.GetSystem(tx, consts.SystemLastMaxUSN, &ret); err != nil {
		return ret, errors.Wrap(err, "querying last user max_usn")
	}

	return ret, nil
}

// syncList is an aggregation of resources represented in the sync fragments
type syncList struct {
	Pages           map[string]client.SyncFragPage
	Folders         map[string]client.SyncFragFolder
	Alarms          map[string]client.SyncFragAlarm
	ExpungedPages   map[string]bool
	ExpungedFolders map[string]bool
	ExpungedAlarms  map[string]bool
	MaxUSN          int
	UserMaxUSN      int // Server's actual max USN (for distinguishing empty fragment vs empty server)
	MaxCurrentTime  int64
}

func (l syncList) getLength() int {
	return len(l.Pages) + len(l.Folders) + len(l.Alarms) +
		len(l.ExpungedPages) + len(l.ExpungedFolders) + len(l.ExpungedAlarms)
}

// processFragments categorizes items in sync fragments into a sync list.
func processFragments(fragments []client.SyncFragment) (syncList, error) {
	pages := map[string]client.SyncFragPage{}
	folders := map[string]client.SyncFragFolder{}
	alarms := map[string]client.SyncFragAlarm{}
	expungedPages := map[string]bool{}
	expungedFolders := map[string]bool{}
	expungedAlarms := map[string]bool{}
	var maxUSN int
	var userMaxUSN int
	var maxCurrentTime int64

	for _, fragment := range fragments {
		for _, page := range fragment.Pages {
			pages[page.UUID] = page
		}
		for _, folder := range fragment.Folders {
			folders[folder.UUID] = folder
		}
		for _, alarm := range fragment.Alarms {
			alarms[alarm.UUID] = alarm
		}
		for _, uuid := range fragment.ExpungedPages {
			expungedPages[uuid] = true
		}
		for _, uuid := range fragment.ExpungedFolders {
			expungedFolders[uuid] = true
		}
		for _, uuid := range fragment.ExpungedAlarms {
			expungedAlarms[uuid] = true
		}

		if fragment.FragMaxUSN > maxUSN {
			maxUSN = fragment.FragMaxUSN
		}
		if fragment.UserMaxUSN > userMaxUSN {
			userMaxUSN = fragment.UserMaxUSN
		}
		if fragment.CurrentTime > maxCurrentTime {
			maxCurrentTime = fragment.CurrentTime
		}
	}

	sl := syncList{
		Pages:           pages,
		Folders:         folders,
		Alarms:          alarms,
		ExpungedPages:   expungedPages,
		ExpungedFolders: expungedFolders,
		ExpungedAlarms:  expungedAlarms,
		MaxUSN:          maxUSN,
		UserMaxUSN:      userMaxUSN,
		MaxCurrentTime:  maxCurrentTime,
	}

	return sl, nil
}

// getSyncList gets a list of all sync fragments after the specified usn
// and aggregates them into a syncList data structure
func getSyncList(ctx context.LeafCtx, afterUSN int) (syncList, error) {
	fragments, err := getSyncFragments(ctx, afterUSN)
	if err != nil {
		return syncList{}, errors.Wrap(err, "getting sync fragments")
	}

	ret, err := processFragments(fragments)
	if err != nil {
		return syncList{}, errors.Wrap(err, "making sync list")
	}

	return ret, nil
}

// getSyncFragments repeatedly gets all sync fragments after the specified usn until there is no more new data
// remaining and returns the buffered list
func getSyncFragments(ctx context.LeafCtx, afterUSN int) ([]client.SyncFragment, error) {
	var buf []client.SyncFragment

	nextAfterUSN := afterUSN

	for {
		resp, err := client.GetSyncFragment(ctx, nextAfterUSN)
		if err != nil {
			return buf, errors.Wrap(err, "getting sync fragment")
		}

		frag := resp.Fragment
		buf = append(buf, frag)

		nextAfterUSN = frag.FragMaxUSN

		// if there is no more data, break
		if nextAfterUSN == 0 {
			break
		}
	}

	log.Debug("received sync fragments: %+v\n", redactSyncFragments(buf))

	return buf, nil
}

func redactStr(s string) string {
	if s != "" {
		return "<redacted>"
	}
	return ""
}

// redactSyncFragments returns a deep copy of sync fragments with sensitive
// fields (page title and body, folder name) removed for safe logging
func redactSyncFragments(fragments []client.SyncFragment) []client.SyncFragment {
	redacted := make([]client.SyncFragment, len(fragments))
	for i, frag := range fragments {
		pages := make([]client.SyncFragPage, len(frag.Pages))
		for j, page := range frag.Pages {
			p := page
			p.Title = redactStr(page.Title)
			p.Body = redactStr(page.Body)
			pages[j] = p
		}

		folders := make([]client.SyncFragFolder, len(frag.Folders))
		for j, folder := range frag.Folders {
			f := folder
			f.Name = redactStr(folder.Name)
			f.Description = nil
			folders[j] = f
		}

		redacted[i] = client.SyncFragment{
			FragMaxUSN:      frag.FragMaxUSN,
			UserMaxUSN:      frag.UserMaxUSN,
			CurrentTime:     frag.CurrentTime,
			Pages:           pages,
			Folders:         folders,
			Alarms:          frag.Alarms,
			ExpungedPages:   frag.ExpungedPages,
			ExpungedFolders: frag.ExpungedFolders,
			ExpungedAlarms:  frag.ExpungedAlarms,
		}
	}
	return redacted
}

// resolveName resolves a folder name conflict by repeatedly appending an increasing integer
// to the name until it finds a unique name. It returns the first non-conflicting name.
func resolveName(tx *database.DB, name string) (string, error) {
	var ret string

	for i := 2; ; i++ {
		ret = fmt.Sprintf("%s_%d", name, i)

		var cnt int
		if err := tx.QueryRow("SELECT count(*) FROM folders WHERE name = ?", ret).Scan(&cnt); err != nil {
			return "", errors.Wrapf(err, "checking availability of name %s", ret)
		}

		if cnt == 0 {
			break
		}
	}

	return ret, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// mergeFolder inserts or updates the given folder in the local database.
// If a folder with a duplicate name exists locally, it renames the duplicate by appending a number.
func mergeFolder(tx *database.DB, userUUID string, f client.SyncFragFolder, mode int) error {
	var count int
	if err := tx.QueryRow("SELECT count(*) FROM folders WHERE name = ?", f.Name).Scan(&count); err != nil {
		return errors.Wrapf(err, "checking for folders with a duplicate name %s", f.Name)
	}

	// if duplicate exists locally, rename it and mark it dirty
	if count > 0 {
		newName, err := resolveName(tx, f.Name)
		if err != nil {
			return errors.Wrap(err, "getting a new folder name for conflict resolution")
		}

		if _, err := tx.Exec("UPDATE folders SET name = ?, dirty = ? WHERE name = ? AND uuid != ?", newName, true, f.Name, f.UUID); err != nil {
			return errors.Wrap(err, "resolving duplicate folder name")
		}
	}

	if mode == modeInsert {
		folder := database.Folder{
			UUID:            f.UUID,
			UserUUID:        userUUID,
			Name:            f.Name,
			Description:     nullStr(f.Description),
			ThumbnailURI:    nullStr(f.ThumbnailURI),
			PageCount:       f.PageCount,
			LastPageAddedOn: f.LastPageAddedOn,
			AddedOn:         f.AddedOn,
			USN:             f.USN,
		}
		if err := folder.Insert(tx); err != nil {
			return errors.Wrapf(err, "inserting folder with uuid %s", f.UUID)
		}
	} else if mode == modeUpdate {
		// The state from the server overwrites the local state. In other words, the server change always wins.
		if _, err := tx.Exec(`UPDATE folders SET usn = ?, name = ?, description = ?, thumbnail_uri = ?,
			page_count = ?, last_page_added_on = ?, deleted = ? WHERE uuid = ?`,
			f.USN, f.Name, nullStr(f.Description), nullStr(f.ThumbnailURI),
			f.PageCount, f.LastPageAddedOn, f.Deleted, f.UUID); err != nil {
			return errors.Wrapf(err, "updating local folder %s", f.UUID)
		}
	}

	return nil
}

func stepSyncFolder(tx *database.DB, userUUID string, f client.SyncFragFolder) error {
	var localUSN int
	var dirty bool
	err := tx.QueryRow("SELECT usn, dirty FROM folders WHERE uuid = ?", f.UUID).Scan(&localUSN, &dirty)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local folder %s", f.UUID)
	}

	// if folder exists in the server and does not exist in the client
	if err == sql.ErrNoRows {
		if e := mergeFolder(tx, userUUID, f, modeInsert); e != nil {
			return errors.Wrapf(e, "resolving folder")
		}

		return nil
	}

	if e := mergeFolder(tx, userUUID, f, modeUpdate); e != nil {
		return errors.Wrapf(e, "resolving folder")
	}

	return nil
}

func fullSyncFolder(tx *database.DB, userUUID string, f client.SyncFragFolder) error {
	var localUSN int
	var dirty bool
	err := tx.QueryRow("SELECT usn, dirty FROM folders WHERE uuid = ?", f.UUID).Scan(&localUSN, &dirty)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local folder %s", f.UUID)
	}

	// if folder exists in the server and does not exist in the client
	if err == sql.ErrNoRows {
		if e := mergeFolder(tx, userUUID, f, modeInsert); e != nil {
			return errors.Wrapf(e, "resolving folder")
		}
	} else if f.USN > localUSN {
		if e := mergeFolder(tx, userUUID, f, modeUpdate); e != nil {
			return errors.Wrapf(e, "resolving folder")
		}
	}

	return nil
}

func mergePage(tx *database.DB, serverPage client.SyncFragPage, localPage database.Page) error {
	// if the local copy is deleted, and it was edited on the server, override
	// with server values and mark it not dirty.
	if localPage.Deleted {
		if _, err := tx.Exec(`UPDATE pages SET usn = ?, folder_uuid = ?, title = ?, body = ?, kind = ?,
			edited_on = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
			serverPage.USN, nullStr(serverPage.FolderUUID), serverPage.Title, serverPage.Body, serverPage.Kind,
			serverPage.EditedOn, serverPage.Deleted, false, serverPage.UUID); err != nil {
			return errors.Wrapf(err, "updating local page %s", serverPage.UUID)
		}

		return nil
	}

	mr := mergePageFields(localPage, serverPage)

	if _, err := tx.Exec(`UPDATE pages SET usn = ?, folder_uuid = ?, title = ?, body = ?, kind = ?,
		edited_on = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
		serverPage.USN, mr.folderUUID, mr.title, mr.body, mr.kind,
		mr.editedOn, serverPage.Deleted, mr.dirty, serverPage.UUID); err != nil {
		return errors.Wrapf(err, "updating local page %s", serverPage.UUID)
	}

	return nil
}

func pageFromFragment(userUUID string, p client.SyncFragPage) database.Page {
	return database.Page{
		UUID:        p.UUID,
		UserUUID:    userUUID,
		FolderUUID:  nullStr(p.FolderUUID),
		Title:       p.Title,
		Body:        p.Body,
		Kind:        p.Kind,
		Public:      p.Public,
		ParentCount: p.ParentCount,
		ChildCount:  p.ChildCount,
		AddedOn:     p.AddedOn,
		EditedOn:    p.EditedOn,
		USN:         p.USN,
		Deleted:     p.Deleted,
	}
}

func getLocalPage(tx *database.DB, uuid string) (database.Page, error) {
	var localPage database.Page
	err := tx.QueryRow("SELECT title, body, kind, usn, folder_uuid, dirty, deleted FROM pages WHERE uuid = ?", uuid).
		Scan(&localPage.Title, &localPage.Body, &localPage.Kind, &localPage.USN, &localPage.FolderUUID, &localPage.Dirty, &localPage.Deleted)

	return localPage, err
}

func stepSyncPage(tx *database.DB, userUUID string, p client.SyncFragPage) error {
	localPage, err := getLocalPage(tx, p.UUID)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local page %s", p.UUID)
	}

	// if page exists in the server and does not exist in the client, insert the page.
	if err == sql.ErrNoRows {
		page := pageFromFragment(userUUID, p)

		if err := page.Insert(tx); err != nil {
			return errors.Wrapf(err, "inserting page with uuid %s", p.UUID)
		}
	} else {
		if err := mergePage(tx, p, localPage); err != nil {
			return errors.Wrap(err, "merging local page")
		}
	}

	return nil
}

func fullSyncPage(tx *database.DB, userUUID string, p client.SyncFragPage) error {
	localPage, err := getLocalPage(tx, p.UUID)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local page %s", p.UUID)
	}

	// if page exists in the server and does not exist in the client, insert the page.
	if err == sql.ErrNoRows {
		page := pageFromFragment(userUUID, p)

		if err := page.Insert(tx); err != nil {
			return errors.Wrapf(err, "inserting page with uuid %s", p.UUID)
		}
	} else if p.USN > localPage.USN {
		if err := mergePage(tx, p, localPage); err != nil {
			return errors.Wrap(err, "merging local page")
		}
	}

	return nil
}

// mergeAlarm overwrites the local alarm with the server state. A dirty local
// alarm keeps its trigger time, since it represents an unsynced user edit,
// but the delivery bookkeeping always comes from the server because only the
// server sends notifications.
func mergeAlarm(tx *database.DB, serverAlarm client.SyncFragAlarm, localAlarm database.Alarm) error {
	nextTriggerAt := nullInt64(serverAlarm.NextTriggerAt)
	dirty := false

	if localAlarm.Dirty && !localAlarm.Deleted {
		nextTriggerAt = localAlarm.NextTriggerAt
		dirty = true
	}

	if _, err := tx.Exec(`UPDATE alarms SET usn = ?, page_uuid = ?, next_trigger_at = ?, sent_count = ?,
		last_notification_id = ?, edited_on = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
		serverAlarm.USN, serverAlarm.PageUUID, nextTriggerAt, serverAlarm.SentCount,
		nullStr(serverAlarm.LastNotificationID), serverAlarm.EditedOn, serverAlarm.Deleted, dirty, serverAlarm.UUID); err != nil {
		return errors.Wrapf(err, "updating local alarm %s", serverAlarm.UUID)
	}

	return nil
}

func alarmFromFragment(userUUID string, a client.SyncFragAlarm) database.Alarm {
	return database.Alarm{
		UUID:               a.UUID,
		UserUUID:           userUUID,
		PageUUID:           a.PageUUID,
		NextTriggerAt:      nullInt64(a.NextTriggerAt),
		SentCount:          a.SentCount,
		LastNotificationID: nullStr(a.LastNotificationID),
		AddedOn:            a.AddedOn,
		EditedOn:           a.EditedOn,
		USN:                a.USN,
		Deleted:            a.Deleted,
	}
}

func getLocalAlarm(tx *database.DB, uuid string) (database.Alarm, error) {
	var localAlarm database.Alarm
	err := tx.QueryRow("SELECT page_uuid, next_trigger_at, usn, dirty, deleted FROM alarms WHERE uuid = ?", uuid).
		Scan(&localAlarm.PageUUID, &localAlarm.NextTriggerAt, &localAlarm.USN, &localAlarm.Dirty, &localAlarm.Deleted)

	return localAlarm, err
}

func stepSyncAlarm(tx *database.DB, userUUID string, a client.SyncFragAlarm) error {
	localAlarm, err := getLocalAlarm(tx, a.UUID)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local alarm %s", a.UUID)
	}

	if err == sql.ErrNoRows {
		alarm := alarmFromFragment(userUUID, a)

		if err := alarm.Insert(tx); err != nil {
			return errors.Wrapf(err, "inserting alarm with uuid %s", a.UUID)
		}
	} else {
		if err := mergeAlarm(tx, a, localAlarm); err != nil {
			return errors.Wrap(err, "merging local alarm")
		}
	}

	return nil
}

func fullSyncAlarm(tx *database.DB, userUUID string, a client.SyncFragAlarm) error {
	localAlarm, err := getLocalAlarm(tx, a.UUID)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local alarm %s", a.UUID)
	}

	if err == sql.ErrNoRows {
		alarm := alarmFromFragment(userUUID, a)

		if err := alarm.Insert(tx); err != nil {
			return errors.Wrapf(err, "inserting alarm with uuid %s", a.UUID)
		}
	} else if a.USN > localAlarm.USN {
		if err := mergeAlarm(tx, a, localAlarm); err != nil {
			return errors.Wrap(err, "merging local alarm")
		}
	}

	return nil
}

func syncDeletePage(tx *database.DB, pageUUID string) error {
	var localUSN int
	var dirty bool
	err := tx.QueryRow("SELECT usn, dirty FROM pages WHERE uuid = ?", pageUUID).Scan(&localUSN, &dirty)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local page %s", pageUUID)
	}

	// if page does not exist on client, noop
	if err == sql.ErrNoRows {
		return nil
	}

	// if local copy is not dirty, delete
	if !dirty {
		_, err = tx.Exec("DELETE FROM pages WHERE uuid = ?", pageUUID)
		if err != nil {
			return errors.Wrapf(err, "deleting local page %s", pageUUID)
		}
	}

	return nil
}

func syncDeleteAlarm(tx *database.DB, alarmUUID string) error {
	var localUSN int
	var dirty bool
	err := tx.QueryRow("SELECT usn, dirty FROM alarms WHERE uuid = ?", alarmUUID).Scan(&localUSN, &dirty)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local alarm %s", alarmUUID)
	}

	// if alarm does not exist on client, noop
	if err == sql.ErrNoRows {
		return nil
	}

	// if local copy is not dirty, delete
	if !dirty {
		_, err = tx.Exec("DELETE FROM alarms WHERE uuid = ?", alarmUUID)
		if err != nil {
			return errors.Wrapf(err, "deleting local alarm %s", alarmUUID)
		}
	}

	return nil
}

// checkPagesPristine checks that none of the pages in the given folder are dirty
func checkPagesPristine(tx *database.DB, folderUUID string) (bool, error) {
	var count int
	if err := tx.QueryRow("SELECT count(*) FROM pages WHERE folder_uuid = ? AND dirty = ?", folderUUID, true).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "counting pages that are dirty in folder %s", folderUUID)
	}

	if count > 0 {
		return false, nil
	}

	return true, nil
}

func syncDeleteFolder(tx *database.DB, folderUUID string) error {
	var localUSN int
	var dirty bool
	err := tx.QueryRow("SELECT usn, dirty FROM folders WHERE uuid = ?", folderUUID).Scan(&localUSN, &dirty)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrapf(err, "getting local folder %s", folderUUID)
	}

	// if folder does not exist on client, noop
	if err == sql.ErrNoRows {
		return nil
	}

	// if local copy is dirty, noop. it will be uploaded to the server later
	if dirty {
		return nil
	}

	ok, err := checkPagesPristine(tx, folderUUID)
	if err != nil {
		return errors.Wrap(err, "checking if any pages are dirty in folder")
	}
	// if the folder holds unsynced pages, do not delete but mark it as dirty
	// so that it can be uploaded to the server later and become un-deleted
	if !ok {
		_, err = tx.Exec("UPDATE folders SET dirty = ? WHERE uuid = ?", true, folderUUID)
		if err != nil {
			return errors.Wrapf(err, "marking a folder dirty with uuid %s", folderUUID)
		}

		return nil
	}

	// detach clean pages rather than deleting them. A folder is a grouping,
	// not a container, so the pages live on at the top level.
	_, err = tx.Exec("UPDATE pages SET folder_uuid = NULL WHERE folder_uuid = ?", folderUUID)
	if err != nil {
		return errors.Wrapf(err, "detaching local pages of the folder %s", folderUUID)
	}

	_, err = tx.Exec("DELETE FROM folders WHERE uuid = ?", folderUUID)
	if err != nil {
		return errors.Wrapf(err, "deleting local folder %s", folderUUID)
	}

	return nil
}

// checkPageInList checks if the given syncList contains the page with the given uuid
func checkPageInList(uuid string, list *syncList) bool {
	if _, ok := list.Pages[uuid]; ok {
		return true
	}

	if _, ok := list.ExpungedPages[uuid]; ok {
		return true
	}

	return false
}

// checkFolderInList checks if the given syncList contains the folder with the given uuid
func checkFolderInList(uuid string, list *syncList) bool {
	if _, ok := list.Folders[uuid]; ok {
		return true
	}

	if _, ok := list.ExpungedFolders[uuid]; ok {
		return true
	}

	return false
}

// checkAlarmInList checks if the given syncList contains the alarm with the given uuid
func checkAlarmInList(uuid string, list *syncList) bool {
	if _, ok := list.Alarms[uuid]; ok {
		return true
	}

	if _, ok := list.ExpungedAlarms[uuid]; ok {
		return true
	}

	return false
}

// cleanLocalPages deletes from the local database any pages that are in invalid state
// judging by the full list of resources in the server. Concretely, the only acceptable
// situation in which a local page is not present in the server is if it is new and has not been
// uploaded (i.e. dirty and usn is 0). Otherwise, it is a result of some kind of error and should be cleaned.
func cleanLocalPages(tx *database.DB, fullList *syncList) error {
	rows, err := tx.Query("SELECT uuid, usn, dirty FROM pages")
	if err != nil {
		return errors.Wrap(err, "getting local pages")
	}
	defer rows.Close()

	for rows.Next() {
		var page database.Page
		if err := rows.Scan(&page.UUID, &page.USN, &page.Dirty); err != nil {
			return errors.Wrap(err, "scanning a row for local page")
		}

		ok := checkPageInList(page.UUID, fullList)
		if !ok && (!page.Dirty || page.USN != 0) {
			err = page.Expunge(tx)
			if err != nil {
				return errors.Wrap(err, "expunging a page")
			}
		}
	}

	return nil
}

// cleanLocalFolders deletes from the local database any folders that are in invalid state
func cleanLocalFolders(tx *database.DB, fullList *syncList) error {
	rows, err := tx.Query("SELECT uuid, usn, dirty FROM folders")
	if err != nil {
		return errors.Wrap(err, "getting local folders")
	}
	defer rows.Close()

	for rows.Next() {
		var folder database.Folder
		if err := rows.Scan(&folder.UUID, &folder.USN, &folder.Dirty); err != nil {
			return errors.Wrap(err, "scanning a row for local folder")
		}

		ok := checkFolderInList(folder.UUID, fullList)
		if !ok && (!folder.Dirty || folder.USN != 0) {
			err = folder.Expunge(tx)
			if err != nil {
				return errors.Wrap(err, "expunging a folder")
			}
		}
	}

	return nil
}

// cleanLocalAlarms deletes from the local database any alarms that are in invalid state
func cleanLocalAlarms(tx *database.DB, fullList *syncList) error {
	rows, err := tx.Query("SELECT uuid, usn, dirty FROM alarms")
	if err != nil {
		return errors.Wrap(err, "getting local alarms")
	}
	defer rows.Close()

	for rows.Next() {
		var alarm database.Alarm
		if err := rows.Scan(&alarm.UUID, &alarm.USN, &alarm.Dirty); err != nil {
			return errors.Wrap(err, "scanning a row for local alarm")
		}

		ok := checkAlarmInList(alarm.UUID, fullList)
		if !ok && (!alarm.Dirty || alarm.USN != 0) {
			err = alarm.Expunge(tx)
			if err != nil {
				return errors.Wrap(err, "expunging an alarm")
			}
		}
	}

	return nil
}

func fullSync(ctx context.LeafCtx, tx *database.DB) error {
	log.Debug("performing a full sync\n")
	log.Info("resolving delta.")

	log.DebugNewline()

	list, err := getSyncList(ctx, 0)
	if err != nil {
		return errors.Wrap(err, "getting sync list")
	}

	fmt.Printf(" (total %d).", list.getLength())

	log.DebugNewline()

	// clean resources that are in erroneous states
	if err := cleanLocalPages(tx, &list); err != nil {
		return errors.Wrap(err, "cleaning up local pages")
	}
	if err := cleanLocalFolders(tx, &list); err != nil {
		return errors.Wrap(err, "cleaning up local folders")
	}
	if err := cleanLocalAlarms(tx, &list); err != nil {
		return errors.Wrap(err, "cleaning up local alarms")
	}

	for _, folder := range list.Folders {
		if err := fullSyncFolder(tx, ctx.UserUUID, folder); err != nil {
			return errors.Wrap(err, "merging folder")
		}
	}
	for _, page := range list.Pages {
		if err := fullSyncPage(tx, ctx.UserUUID, page); err != nil {
			return errors.Wrap(err, "merging page")
		}
	}
	for _, alarm := range list.Alarms {
		if err := fullSyncAlarm(tx, ctx.UserUUID, alarm); err != nil {
			return errors.Wrap(err, "merging alarm")
		}
	}

	for alarmUUID := range list.ExpungedAlarms {
		if err := syncDeleteAlarm(tx, alarmUUID); err != nil {
			return errors.Wrap(err, "deleting alarm")
		}
	}
	for pageUUID := range list.ExpungedPages {
		if err := syncDeletePage(tx, pageUUID); err != nil {
			return errors.Wrap(err, "deleting page")
		}
	}
	for folderUUID := range list.ExpungedFolders {
		if err := syncDeleteFolder(tx, folderUUID); err != nil {
			return errors.Wrap(err, "deleting folder")
		}
	}

	err = saveSyncState(tx, list.MaxCurrentTime, list.MaxUSN, list.UserMaxUSN)
	if err != nil {
		return errors.Wrap(err, "saving sync state")
	}

	fmt.Println(" done.")

	return nil
}

func stepSync(ctx context.LeafCtx, tx *database.DB, afterUSN int) error {
	log.Debug("performing a step sync\n")

	log.Info("resolving delta.")

	log.DebugNewline()

	list, err := getSyncList(ctx, afterUSN)
	if err != nil {
		return errors.Wrap(err, "getting sync list")
	}

	fmt.Printf(" (total %d).", list.getLength())

	for _, folder := range list.Folders {
		if err := stepSyncFolder(tx, ctx.UserUUID, folder); err != nil {
			return errors.Wrap(err, "merging folder")
		}
	}
	for _, page := range list.Pages {
		if err := stepSyncPage(tx, ctx.UserUUID, page); err != nil {
			return errors.Wrap(err, "merging page")
		}
	}
	for _, alarm := range list.Alarms {
		if err := stepSyncAlarm(tx, ctx.UserUUID, alarm); err != nil {
			return errors.Wrap(err, "merging alarm")
		}
	}

	for alarmUUID := range list.ExpungedAlarms {
		if err := syncDeleteAlarm(tx, alarmUUID); err != nil {
			return errors.Wrap(err, "deleting alarm")
		}
	}
	for pageUUID := range list.ExpungedPages {
		if err := syncDeletePage(tx, pageUUID); err != nil {
			return errors.Wrap(err, "deleting page")
		}
	}
	for folderUUID := range list.ExpungedFolders {
		if err := syncDeleteFolder(tx, folderUUID); err != nil {
			return errors.Wrap(err, "deleting folder")
		}
	}

	err = saveSyncState(tx, list.MaxCurrentTime, list.MaxUSN, list.UserMaxUSN)
	if err != nil {
		return errors.Wrap(err, "saving sync state")
	}

	fmt.Println(" done.")

	return nil
}

func updateLastMaxUSN(tx *database.DB, val int) error {
	if err := database.UpdateSystem(tx, consts.SystemLastMaxUSN, val); err != nil {
		return errors.Wrapf(err, "updating %s", consts.SystemLastMaxUSN)
	}

	return nil
}

func updateLastSyncAt(tx *database.DB, val int64) error {
	if err := database.UpdateSystem(tx, consts.SystemLastSyncAt, val); err != nil {
		return errors.Wrapf(err, "updating %s", consts.SystemLastSyncAt)
	}

	return nil
}

func saveSyncState(tx *database.DB, serverTime int64, serverMaxUSN int, userMaxUSN int) error {
	// Handle last_max_usn update based on server state:
	// - If serverMaxUSN > 0: we got data, update to serverMaxUSN
	// - If serverMaxUSN == 0 && userMaxUSN > 0: empty fragment (caught up), preserve existing
	// - If serverMaxUSN == 0 && userMaxUSN == 0: empty server, reset to 0
	if serverMaxUSN > 0 {
		if err := updateLastMaxUSN(tx, serverMaxUSN); err != nil {
			return errors.Wrap(err, "updating last max usn")
		}
	} else if userMaxUSN == 0 {
		if err := updateLastMaxUSN(tx, 0); err != nil {
			return errors.Wrap(err, "updating last max usn")
		}
	}
	// else: empty fragment but server has data, preserve existing last_max_usn

	// Always update last_sync_at (we did communicate with server)
	if err := updateLastSyncAt(tx, serverTime); err != nil {
		return errors.Wrap(err, "updating last sync at")
	}

	return nil
}

// prepareEmptyServerSync marks all local folders, pages and alarms as dirty when
// syncing to an empty server. This is typically used when switching to a new empty
// server but wanting to upload existing local data.
func prepareEmptyServerSync(tx *database.DB) error {
	if _, err := tx.Exec("UPDATE folders SET usn = 0, dirty = 1 WHERE deleted = 0"); err != nil {
		return errors.Wrap(err, "marking folders as dirty")
	}
	if _, err := tx.Exec("UPDATE pages SET usn = 0, dirty = 1 WHERE deleted = 0"); err != nil {
		return errors.Wrap(err, "marking pages as dirty")
	}
	if _, err := tx.Exec("UPDATE alarms SET usn = 0, dirty = 1 WHERE deleted = 0"); err != nil {
		return errors.Wrap(err, "marking alarms as dirty")
	}

	// Reset lastMaxUSN to 0 to match the server
	if err := updateLastMaxUSN(tx, 0); err != nil {
		return errors.Wrap(err, "resetting last max usn")
	}

	return nil
}

// Run reconciles the local replica with the server. If isFullSync, it replays
// the complete server state instead of only the changes past the last seen USN.
func Run(ctx context.LeafCtx, isFullSync bool) error {
	if ctx.SessionKey == "" {
		return ErrNotLoggedIn
	}

	tx, err := ctx.DB.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	syncState, err := client.GetSyncState(ctx)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "getting the sync state from the server")
	}
	lastSyncAt, err := getLastSyncAt(tx)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "getting the last sync time")
	}
	lastMaxUSN, err := getLastMaxUSN(tx)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "getting the last max_usn")
	}

	log.Debug("lastSyncAt: %d, lastMaxUSN: %d, syncState: %+v\n", lastSyncAt, lastMaxUSN, syncState)

	// Handle a case where server has MaxUSN=0 but local has data (server switch)
	var folderCount, pageCount int
	if err := tx.QueryRow("SELECT count(*) FROM folders WHERE deleted = 0").Scan(&folderCount); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "counting local folders")
	}
	if err := tx.QueryRow("SELECT count(*) FROM pages WHERE deleted = 0").Scan(&pageCount); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "counting local pages")
	}

	// If a client has previously synced (lastMaxUSN > 0) but the server was never synced to (MaxUSN = 0),
	// and the client has undeleted folders or pages, allow to upload all data to the server.
	// The client might have switched servers or the server might need to be restored for any reasons.
	if syncState.MaxUSN == 0 && lastMaxUSN > 0 && (folderCount > 0 || pageCount > 0) {
		log.Debug("empty server detected: server.MaxUSN=%d, local.MaxUSN=%d, folders=%d, pages=%d\n",
			syncState.MaxUSN, lastMaxUSN, folderCount, pageCount)

		log.Warnf("The server is empty but you have local data. Maybe you switched servers?\n")

		confirmed, err := ui.Confirm(fmt.Sprintf("Upload %d folders and %d pages to the server?", folderCount, pageCount), false)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "getting user confirmation")
		}

		if !confirmed {
			tx.Rollback()
			return errors.New("sync cancelled by user")
		}

		fmt.Println()

		if err := prepareEmptyServerSync(tx); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "preparing for empty server sync")
		}

		lastMaxUSN, err = getLastMaxUSN(tx)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "getting the last max_usn after prepare")
		}

		log.Debug("prepared empty server sync: marked %d folders and %d pages as dirty\n", folderCount, pageCount)
	}

	var syncErr error
	if isFullSync || lastSyncAt < syncState.FullSyncBefore {
		syncErr = fullSync(ctx, tx)
	} else if lastMaxUSN != syncState.MaxUSN {
		syncErr = stepSync(ctx, tx, lastMaxUSN)
	} else {
		// if no need to sync from the server, simply update the last sync timestamp and proceed to send changes
		if err := updateLastSyncAt(tx, syncState.CurrentTime); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "updating last sync at")
		}
	}
	if syncErr != nil {
		tx.Rollback()
		return errors.Wrap(syncErr, "syncing changes from the server")
	}

	isBehind, err := sendChanges(ctx, tx)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "sending changes")
	}

	// if server state gets ahead of that of client during the sync, do an additional step sync
	if isBehind {
		log.Debug("performing another step sync because client is behind\n")

		updatedLastMaxUSN, err := getLastMaxUSN(tx)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "getting the new last max_usn")
		}

		err = stepSync(ctx, tx, updatedLastMaxUSN)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "performing the follow-up step sync")
		}

		// After syncing server changes (which resolves conflicts), send local
		// changes again. This uploads resources that were skipped due to 409 conflicts.
		_, err = sendChanges(ctx, tx)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "sending changes after conflict resolution")
		}
	}

	if err := ClearPending(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "clearing the pending flag")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	checkPostSyncIntegrity(ctx.DB)

	return nil
}
