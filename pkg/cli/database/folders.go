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

// GetFolder retrieves the folder with the given uuid. The second return value
// indicates whether the folder was found.
func GetFolder(db *DB, userUUID, uuid string) (Folder, bool, error) {
	var f Folder
	err := db.QueryRow(`SELECT uuid, user_uuid, name, description, thumbnail_uri, page_count,
		last_page_added_on, added_on, edited_on, usn, deleted, dirty
		FROM folders WHERE user_uuid = ? AND uuid = ?`, userUUID, uuid).
		Scan(&f.UUID, &f.UserUUID, &f.Name, &f.Description, &f.ThumbnailURI, &f.PageCount,
			&f.LastPageAddedOn, &f.AddedOn, &f.EditedOn, &f.USN, &f.Deleted, &f.Dirty)
	if err == sql.ErrNoRows {
		return f, false, nil
	}
	if err != nil {
		return f, false, errors.Wrapf(err, "querying folder %s", uuid)
	}

	return f, true, nil
}

// GetFolderByName retrieves the undeleted folder with the given name. The
// second return value indicates whether the folder was found.
func GetFolderByName(db *DB, userUUID, name string) (Folder, bool, error) {
	var f Folder
	err := db.QueryRow(`SELECT uuid, user_uuid, name, description, thumbnail_uri, page_count,
		last_page_added_on, added_on, edited_on, usn, deleted, dirty
		FROM folders WHERE user_uuid = ? AND name = ? AND deleted = ?`, userUUID, name, false).
		Scan(&f.UUID, &f.UserUUID, &f.Name, &f.Description, &f.ThumbnailURI, &f.PageCount,
			&f.LastPageAddedOn, &f.AddedOn, &f.EditedOn, &f.USN, &f.Deleted, &f.Dirty)
	if err == sql.ErrNoRows {
		return f, false, nil
	}
	if err != nil {
		return f, false, errors.Wrapf(err, "querying folder named %s", name)
	}

	return f, true, nil
}

// ListFolders returns undeleted folders of the user ordered by name
func ListFolders(db *DB, userUUID string) ([]Folder, error) {
	rows, err := db.Query(`SELECT uuid, user_uuid, name, description, thumbnail_uri, page_count,
		last_page_added_on, added_on, edited_on, usn, deleted, dirty
		FROM folders WHERE user_uuid = ? AND deleted = ? ORDER BY name ASC`, userUUID, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying folders")
	}
	defer rows.Close()

	var ret []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.UUID, &f.UserUUID, &f.Name, &f.Description, &f.ThumbnailURI, &f.PageCount,
			&f.LastPageAddedOn, &f.AddedOn, &f.EditedOn, &f.USN, &f.Deleted, &f.Dirty); err != nil {
			return nil, errors.Wrap(err, "scanning a row for folder")
		}

		ret = append(ret, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating folder rows")
	}

	return ret, nil
}

// RefreshFolderPageCount recomputes the cached page count of the folder from
// the pages that actually reference it. The count is a hint and can drift;
// this brings it back in line.
func RefreshFolderPageCount(db *DB, userUUID, folderUUID string) (int, error) {
	count, err := CountPagesInFolder(db, userUUID, folderUUID)
	if err != nil {
		return 0, errors.Wrap(err, "counting pages")
	}

	if _, err := db.Exec("UPDATE folders SET page_count = ? WHERE user_uuid = ? AND uuid = ?",
		count, userUUID, folderUUID); err != nil {
		return 0, errors.Wrapf(err, "updating page count of folder %s", folderUUID)
	}

	return count, nil
}

// TouchFolderPageAdded records the time a page was last added to the folder
// and bumps the cached page count hint
func TouchFolderPageAdded(db *DB, userUUID, folderUUID string, now int64) error {
	_, err := db.Exec(`UPDATE folders SET last_page_added_on = ?, page_count = page_count + 1, dirty = ?
		WHERE user_uuid = ? AND uuid = ?`, now, true, userUUID, folderUUID)
	if err != nil {
		return errors.Wrapf(err, "touching folder %s", folderUUID)
	}

	return nil
}
