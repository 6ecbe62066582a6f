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

// GetPage retrieves the page with the given uuid. The second return value
// indicates whether the page was found.
func GetPage(db *DB, userUUID, uuid string) (Page, bool, error) {
	var p Page
	err := db.QueryRow(`SELECT id, uuid, user_uuid, folder_uuid, title, body, kind, public,
		parent_count, child_count, added_on, edited_on, usn, deleted, dirty
		FROM pages WHERE user_uuid = ? AND uuid = ?`, userUUID, uuid).
		Scan(&p.RowID, &p.UUID, &p.UserUUID, &p.FolderUUID, &p.Title, &p.Body, &p.Kind, &p.Public,
			&p.ParentCount, &p.ChildCount, &p.AddedOn, &p.EditedOn, &p.USN, &p.Deleted, &p.Dirty)
	if err == sql.ErrNoRows {
		return p, false, nil
	}
	if err != nil {
		return p, false, errors.Wrapf(err, "querying page %s", uuid)
	}

	return p, true, nil
}

// GetPageByRowID retrieves the page with the given local row id. Row ids are
// local conveniences for referring to pages on the command line; they never
// leave the device.
func GetPageByRowID(db *DB, userUUID string, rowID int) (Page, bool, error) {
	var p Page
	err := db.QueryRow(`SELECT id, uuid, user_uuid, folder_uuid, title, body, kind, public,
		parent_count, child_count, added_on, edited_on, usn, deleted, dirty
		FROM pages WHERE user_uuid = ? AND id = ? AND deleted = ?`, userUUID, rowID, false).
		Scan(&p.RowID, &p.UUID, &p.UserUUID, &p.FolderUUID, &p.Title, &p.Body, &p.Kind, &p.Public,
			&p.ParentCount, &p.ChildCount, &p.AddedOn, &p.EditedOn, &p.USN, &p.Deleted, &p.Dirty)
	if err == sql.ErrNoRows {
		return p, false, nil
	}
	if err != nil {
		return p, false, errors.Wrapf(err, "querying page with id %d", rowID)
	}

	return p, true, nil
}

// ListPages returns undeleted pages of the user in creation order. Page ids
// are time-ordered, so ordering by uuid orders by creation time.
func ListPages(db *DB, userUUID string, limit, offset int) ([]Page, error) {
	rows, err := db.Query(`SELECT id, uuid, user_uuid, folder_uuid, title, body, kind, public,
		parent_count, child_count, added_on, edited_on, usn, deleted, dirty
		FROM pages WHERE user_uuid = ? AND deleted = ?
		ORDER BY uuid ASC LIMIT ? OFFSET ?`, userUUID, false, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "querying pages")
	}
	defer rows.Close()

	var ret []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.RowID, &p.UUID, &p.UserUUID, &p.FolderUUID, &p.Title, &p.Body, &p.Kind, &p.Public,
			&p.ParentCount, &p.ChildCount, &p.AddedOn, &p.EditedOn, &p.USN, &p.Deleted, &p.Dirty); err != nil {
			return nil, errors.Wrap(err, "scanning a row for page")
		}

		ret = append(ret, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating page rows")
	}

	return ret, nil
}

// CountPagesInFolder counts the undeleted pages referencing the given folder
func CountPagesInFolder(db *DB, userUUID, folderUUID string) (int, error) {
	var count int
	err := db.QueryRow("SELECT count(*) FROM pages WHERE user_uuid = ? AND folder_uuid = ? AND deleted = ?",
		userUUID, folderUUID, false).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "counting pages in folder %s", folderUUID)
	}

	return count, nil
}
