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
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/helpers"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CreateFolder creates a folder with the next usn and updates the user's max_usn
func (a *App) CreateFolder(user database.User, name string) (database.Folder, error) {
	if name == "" {
		return database.Folder{}, ErrFolderNameRequired
	}

	tx := a.DB.Begin()

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		tx.Rollback()
		return database.Folder{}, errors.Wrap(err, "incrementing user max_usn")
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		tx.Rollback()
		return database.Folder{}, err
	}

	folder := database.Folder{
		UUID:    uuid,
		UserID:  user.ID,
		Name:    name,
		AddedOn: a.Clock.Now().Unix(),
		USN:     nextUSN,
	}
	if err := tx.Create(&folder).Error; err != nil {
		tx.Rollback()
		return folder, errors.Wrap(err, "inserting folder")
	}

	tx.Commit()

	return folder, nil
}

// UpdateFolderParams is the parameters for updating a folder
type UpdateFolderParams struct {
	Name            *string
	Description     *string
	ThumbnailURI    *string
	LastPageAddedOn *int64
}

// UpdateFolder updates the folder, its usn and the user's max_usn
func (a *App) UpdateFolder(tx *gorm.DB, user database.User, folder database.Folder, p UpdateFolderParams) (database.Folder, error) {
	if user.ID != folder.UserID {
		return folder, ErrNotAllowed
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return folder, errors.Wrap(err, "incrementing user max_usn")
	}

	if p.Name != nil {
		folder.Name = *p.Name
	}
	if p.Description != nil {
		folder.Description = p.Description
	}
	if p.ThumbnailURI != nil {
		folder.ThumbnailURI = p.ThumbnailURI
	}
	if p.LastPageAddedOn != nil {
		folder.LastPageAddedOn = *p.LastPageAddedOn
	}

	folder.USN = nextUSN
	folder.EditedOn = a.Clock.Now().Unix()
	folder.Deleted = false

	if err := tx.Save(&folder).Error; err != nil {
		return folder, errors.Wrap(err, "updating the folder")
	}

	return folder, nil
}

// DeleteFolder marks a folder deleted with the next usn and updates the
// user's max_usn. Pages in the folder are detached, each with its own
// usn, so that clients converge on keeping the pages.
func (a *App) DeleteFolder(tx *gorm.DB, user database.User, folder database.Folder) (database.Folder, error) {
	if user.ID != folder.UserID {
		return folder, ErrNotAllowed
	}

	var pages []database.Page
	if err := tx.Where("user_id = ? AND folder_uuid = ? AND deleted = ?", user.ID, folder.UUID, false).Find(&pages).Error; err != nil {
		return folder, errors.Wrap(err, "finding pages in folder")
	}

	for _, page := range pages {
		pageUSN, err := incrementUserUSN(tx, user.ID)
		if err != nil {
			return folder, errors.Wrap(err, "incrementing user max_usn for page")
		}

		if err := tx.Model(&page).
			Updates(map[string]interface{}{
				"usn":         pageUSN,
				"folder_uuid": nil,
				"edited_on":   a.Clock.Now().Unix(),
			}).Error; err != nil {
			return folder, errors.Wrap(err, "detaching page")
		}
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return folder, errors.Wrap(err, "incrementing user max_usn")
	}

	if err := tx.Model(&folder).
		Updates(map[string]interface{}{
			"usn":     nextUSN,
			"deleted": true,
			"name":    "",
		}).Error; err != nil {
		return folder, errors.Wrap(err, "deleting folder")
	}

	return folder, nil
}

// GetUserFolderByUUID retrieves a folder by the uuid for the given user
func (a *App) GetUserFolderByUUID(userID int, uuid string) (*database.Folder, error) {
	var ret database.Folder
	err := a.DB.Where("user_id = ? AND uuid = ? AND deleted = ?", userID, uuid, false).First(&ret).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding folder")
	}

	return &ret, nil
}

// RefreshFolderPageCount recomputes the derived page count of a folder.
// The count is a hint, so failures are surfaced but non-fatal to callers.
func (a *App) RefreshFolderPageCount(tx *gorm.DB, folderUUID string) error {
	subquery := tx.Model(&database.Page{}).
		Select("count(*)").
		Where("folder_uuid = ? AND deleted = ?", folderUUID, false)

	if err := tx.Model(&database.Folder{}).
		Where("uuid = ?", folderUUID).
		Update("page_count", subquery).Error; err != nil {
		return errors.Wrap(err, "refreshing folder page count")
	}

	return nil
}
