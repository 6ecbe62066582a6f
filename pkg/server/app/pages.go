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
	"github.com/leafnotes/leaf/pkg/server/content"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/helpers"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CreatePageParams is the parameters for creating a page
type CreatePageParams struct {
	// UUID is chosen by the client so that a local replica keeps its
	// page id after the first upload. If empty, one is generated.
	UUID       string
	FolderUUID *string
	Title      string
	Body       string
	Kind       string
	Client     string
}

// CreatePage creates a page with the next usn and updates the user's max_usn.
// The body is sanitized before it is stored.
func (a *App) CreatePage(user database.User, p CreatePageParams) (database.Page, error) {
	uuid := p.UUID
	if uuid == "" {
		var err error
		uuid, err = helpers.GenUUID()
		if err != nil {
			return database.Page{}, err
		}
	} else if !helpers.ValidateUUID(uuid) {
		return database.Page{}, errors.Errorf("invalid page uuid %s", uuid)
	}

	body, err := content.SanitizeHTML(p.Body)
	if err != nil {
		return database.Page{}, errors.Wrap(err, "sanitizing body")
	}

	kind := p.Kind
	if kind == "" {
		kind = database.PageKindText
	}

	tx := a.DB.Begin()

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		tx.Rollback()
		return database.Page{}, errors.Wrap(err, "incrementing user max_usn")
	}

	page := database.Page{
		UUID:       uuid,
		UserID:     user.ID,
		FolderUUID: p.FolderUUID,
		Title:      p.Title,
		Body:       body,
		Kind:       kind,
		AddedOn:    a.Clock.Now().Unix(),
		USN:        nextUSN,
		Client:     p.Client,
	}
	if err := tx.Create(&page).Error; err != nil {
		tx.Rollback()
		return page, errors.Wrap(err, "inserting page")
	}

	if p.FolderUUID != nil {
		if err := a.RefreshFolderPageCount(tx, *p.FolderUUID); err != nil {
			tx.Rollback()
			return page, err
		}
	}

	tx.Commit()

	return page, nil
}

// UpdatePageParams is the parameters for updating a page
type UpdatePageParams struct {
	FolderUUID *string
	Title      *string
	Body       *string
	Kind       *string
	Public     *bool
}

// UpdatePage updates a page with the next usn and updates the user's max_usn
func (a *App) UpdatePage(tx *gorm.DB, user database.User, page database.Page, p UpdatePageParams) (database.Page, error) {
	if user.ID != page.UserID {
		return page, ErrNotAllowed
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return page, errors.Wrap(err, "incrementing user max_usn")
	}

	if p.FolderUUID != nil {
		page.FolderUUID = p.FolderUUID
	}
	if p.Title != nil {
		page.Title = *p.Title
	}
	if p.Body != nil {
		body, err := content.SanitizeHTML(*p.Body)
		if err != nil {
			return page, errors.Wrap(err, "sanitizing body")
		}
		page.Body = body
	}
	if p.Kind != nil {
		page.Kind = *p.Kind
	}
	if p.Public != nil {
		page.Public = *p.Public
	}

	page.USN = nextUSN
	page.EditedOn = a.Clock.Now().Unix()
	page.Deleted = false

	if err := tx.Save(&page).Error; err != nil {
		return page, errors.Wrap(err, "editing page")
	}

	return page, nil
}

// DeletePage marks a page deleted with the next usn and updates the
// user's max_usn. Its alarms are deleted in the same transaction.
func (a *App) DeletePage(tx *gorm.DB, user database.User, page database.Page) (database.Page, error) {
	if user.ID != page.UserID {
		return page, ErrNotAllowed
	}

	var alarms []database.Alarm
	if err := tx.Where("user_id = ? AND page_uuid = ? AND deleted = ?", user.ID, page.UUID, false).Find(&alarms).Error; err != nil {
		return page, errors.Wrap(err, "finding alarms for page")
	}

	for _, alarm := range alarms {
		if _, err := a.DeleteAlarm(tx, user, alarm); err != nil {
			return page, errors.Wrap(err, "deleting alarm for page")
		}
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return page, errors.Wrap(err, "incrementing user max_usn")
	}

	if err := tx.Model(&page).
		Updates(map[string]interface{}{
			"usn":     nextUSN,
			"deleted": true,
			"title":   "",
			"body":    "",
		}).Error; err != nil {
		return page, errors.Wrap(err, "deleting page")
	}

	if page.FolderUUID != nil {
		if err := a.RefreshFolderPageCount(tx, *page.FolderUUID); err != nil {
			return page, err
		}
	}

	return page, nil
}

// GetUserPageByUUID retrieves a page by the uuid for the given user
func (a *App) GetUserPageByUUID(userID int, uuid string) (*database.Page, error) {
	var ret database.Page
	err := a.DB.Where("user_id = ? AND uuid = ?", userID, uuid).First(&ret).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding page")
	}

	return &ret, nil
}
