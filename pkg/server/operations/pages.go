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

// Package operations provides application-level operations that query
// resources while enforcing permissions
package operations

import (
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/helpers"
	"github.com/leafnotes/leaf/pkg/server/permissions"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrPageNotFound is an error for a nonexistent page
	ErrPageNotFound = errors.New("not found")
	// ErrUnauthorized is an error for an unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidUUID is an error for an invalid uuid for a resource
	ErrInvalidUUID = errors.New("invalid uuid")
)

// GetPage retrieves a page for the given user if the user has a permission
// to view it
func GetPage(db *gorm.DB, uuid string, user *database.User) (database.Page, error) {
	if !helpers.ValidateUUID(uuid) {
		return database.Page{}, ErrInvalidUUID
	}

	conn := database.PreloadPage(db.Where("uuid = ? AND deleted = ?", uuid, false))

	var page database.Page
	conn = conn.First(&page)
	if errors.Is(conn.Error, gorm.ErrRecordNotFound) {
		return page, ErrPageNotFound
	} else if conn.Error != nil {
		return page, errors.Wrap(conn.Error, "finding page")
	}

	if ok := permissions.ViewPage(user, page); !ok {
		return database.Page{}, ErrPageNotFound
	}

	return page, nil
}
