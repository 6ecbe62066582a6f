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

package database

import (
	"database/sql"

	"github.com/pkg/errors"
)

// Page represents a page in the local replica
type Page struct {
	RowID       int            `json:"rowid"`
	UUID        string         `json:"uuid"`
	UserUUID    string         `json:"user_uuid"`
	FolderUUID  sql.NullString `json:"folder_uuid"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Kind        string         `json:"kind"`
	Public      bool           `json:"public"`
	ParentCount int            `json:"parent_count"`
	ChildCount  int            `json:"child_count"`
	AddedOn     int64          `json:"added_on"`
	EditedOn    int64          `json:"edited_on"`
	USN         int            `json:"usn"`
	Deleted     bool           `json:"deleted"`
	Dirty       bool           `json:"dirty"`
}

// Folder holds metadata about a group of pages
type Folder struct {
	UUID            string         `json:"uuid"`
	UserUUID        string         `json:"user_uuid"`
	Name            string         `json:"name"`
	Description     sql.NullString `json:"description"`
	ThumbnailURI    sql.NullString `json:"thumbnail_uri"`
	PageCount       int            `json:"page_count"`
	LastPageAddedOn int64          `json:"last_page_added_on"`
	AddedOn         int64          `json:"added_on"`
	EditedOn        int64          `json:"edited_on"`
	USN             int            `json:"usn"`
	Deleted         bool           `json:"deleted"`
	Dirty           bool           `json:"dirty"`
}

// Alarm represents a reminder on a page
type Alarm struct {
	UUID               string         `json:"uuid"`
	UserUUID           string         `json:"user_uuid"`
	PageUUID           string         `json:"page_uuid"`
	NextTriggerAt      sql.NullInt64  `json:"next_trigger_at"`
	SentCount          int            `json:"sent_count"`
	LastNotificationID sql.NullString `json:"last_notification_id"`
	AddedOn            int64          `json:"added_on"`
	EditedOn           int64          `json:"edited_on"`
	USN                int            `json:"usn"`
	Deleted            bool           `json:"deleted"`
	Dirty              bool           `json:"dirty"`
}

// Insert inserts a new page
func (p Page) Insert(db *DB) error {
	_, err := db.Exec(`INSERT INTO pages
		(uuid, user_uuid, folder_uuid, title, body, kind, public, parent_count, child_count, added_on, edited_on, usn, deleted, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.UserUUID, p.FolderUUID, p.Title, p.Body, p.Kind, p.Public, p.ParentCount, p.ChildCount,
		p.AddedOn, p.EditedOn, p.USN, p.Deleted, p.Dirty)
	if err != nil {
		return errors.Wrapf(err, "inserting page with uuid %s", p.UUID)
	}

	return nil
}

// Update updates the page with the given data
func (p Page) Update(db *DB) error {
	_, err := db.Exec(`UPDATE pages SET
		folder_uuid = ?, title = ?, body = ?, kind = ?, public = ?, parent_count = ?, child_count = ?,
		added_on = ?, edited_on = ?, usn = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
		p.FolderUUID, p.Title, p.Body, p.Kind, p.Public, p.ParentCount, p.ChildCount,
		p.AddedOn, p.EditedOn, p.USN, p.Deleted, p.Dirty, p.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating the page with uuid %s", p.UUID)
	}

	return nil
}

// UpdateUUID updates the uuid of a page. Alarms referencing the page follow
// so that no dangling references are introduced by the id handover.
func (p *Page) UpdateUUID(db *DB, newUUID string) error {
	if _, err := db.Exec("UPDATE pages SET uuid = ? WHERE uuid = ?", newUUID, p.UUID); err != nil {
		return errors.Wrapf(err, "updating page uuid from '%s' to '%s'", p.UUID, newUUID)
	}
	if _, err := db.Exec("UPDATE alarms SET page_uuid = ? WHERE page_uuid = ?", newUUID, p.UUID); err != nil {
		return errors.Wrapf(err, "updating page_uuid of alarms from '%s' to '%s'", p.UUID, newUUID)
	}

	p.UUID = newUUID

	return nil
}

// Expunge hard-deletes the page from the local database
func (p Page) Expunge(db *DB) error {
	if _, err := db.Exec("DELETE FROM pages WHERE uuid = ?", p.UUID); err != nil {
		return errors.Wrap(err, "expunging a page locally")
	}

	return nil
}

// Insert inserts a new folder
func (f Folder) Insert(db *DB) error {
	_, err := db.Exec(`INSERT INTO folders
		(uuid, user_uuid, name, description, thumbnail_uri, page_count, last_page_added_on, added_on, edited_on, usn, deleted, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UUID, f.UserUUID, f.Name, f.Description, f.ThumbnailURI, f.PageCount, f.LastPageAddedOn,
		f.AddedOn, f.EditedOn, f.USN, f.Deleted, f.Dirty)
	if err != nil {
		return errors.Wrapf(err, "inserting folder with uuid %s", f.UUID)
	}

	return nil
}

// Update updates the folder with the given data
func (f Folder) Update(db *DB) error {
	_, err := db.Exec(`UPDATE folders SET
		name = ?, description = ?, thumbnail_uri = ?, page_count = ?, last_page_added_on = ?,
		added_on = ?, edited_on = ?, usn = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
		f.Name, f.Description, f.ThumbnailURI, f.PageCount, f.LastPageAddedOn,
		f.AddedOn, f.EditedOn, f.USN, f.Deleted, f.Dirty, f.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating the folder with uuid %s", f.UUID)
	}

	return nil
}

// UpdateUUID updates the uuid of a folder. Pages referencing the folder follow.
func (f *Folder) UpdateUUID(db *DB, newUUID string) error {
	if _, err := db.Exec("UPDATE folders SET uuid = ? WHERE uuid = ?", newUUID, f.UUID); err != nil {
		return errors.Wrapf(err, "updating folder uuid from '%s' to '%s'", f.UUID, newUUID)
	}
	if _, err := db.Exec("UPDATE pages SET folder_uuid = ? WHERE folder_uuid = ?", newUUID, f.UUID); err != nil {
		return errors.Wrapf(err, "updating folder_uuid of pages from '%s' to '%s'", f.UUID, newUUID)
	}

	f.UUID = newUUID

	return nil
}

// Expunge hard-deletes the folder from the local database
func (f Folder) Expunge(db *DB) error {
	if _, err := db.Exec("DELETE FROM folders WHERE uuid = ?", f.UUID); err != nil {
		return errors.Wrap(err, "expunging a folder locally")
	}

	return nil
}

// Insert inserts a new alarm
func (a Alarm) Insert(db *DB) error {
	_, err := db.Exec(`INSERT INTO alarms
		(uuid, user_uuid, page_uuid, next_trigger_at, sent_count, last_notification_id, added_on, edited_on, usn, deleted, dirty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UUID, a.UserUUID, a.PageUUID, a.NextTriggerAt, a.SentCount, a.LastNotificationID,
		a.AddedOn, a.EditedOn, a.USN, a.Deleted, a.Dirty)
	if err != nil {
		return errors.Wrapf(err, "inserting alarm with uuid %s", a.UUID)
	}

	return nil
}

// Update updates the alarm with the given data
func (a Alarm) Update(db *DB) error {
	_, err := db.Exec(`UPDATE alarms SET
		page_uuid = ?, next_trigger_at = ?, sent_count = ?, last_notification_id = ?,
		added_on = ?, edited_on = ?, usn = ?, deleted = ?, dirty = ? WHERE uuid = ?`,
		a.PageUUID, a.NextTriggerAt, a.SentCount, a.LastNotificationID,
		a.AddedOn, a.EditedOn, a.USN, a.Deleted, a.Dirty, a.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating the alarm with uuid %s", a.UUID)
	}

	return nil
}

// UpdateUUID updates the uuid of an alarm
func (a *Alarm) UpdateUUID(db *DB, newUUID string) error {
	if _, err := db.Exec("UPDATE alarms SET uuid = ? WHERE uuid = ?", newUUID, a.UUID); err != nil {
		return errors.Wrapf(err, "updating alarm uuid from '%s' to '%s'", a.UUID, newUUID)
	}

	a.UUID = newUUID

	return nil
}

// Expunge hard-deletes the alarm from the local database
func (a Alarm) Expunge(db *DB) error {
	if _, err := db.Exec("DELETE FROM alarms WHERE uuid = ?", a.UUID); err != nil {
		return errors.Wrap(err, "expunging an alarm locally")
	}

	return nil
}
