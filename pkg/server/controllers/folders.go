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
	"net/http"

	"github.com/gorilla/mux"
	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/context"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/presenters"
	"github.com/pkg/errors"
)

// NewFolders creates a new Folders controller
func NewFolders(app *app.App) *Folders {
	return &Folders{
		app: app,
	}
}

// Folders is a folders controller
type Folders struct {
	app *app.App
}

type createFolderPayload struct {
	Name string `json:"name"`
}

// CreateFolderResp is the response from create folder endpoint
type CreateFolderResp struct {
	Folder presenters.Folder `json:"folder"`
}

// Create handles POST /v1/folders
func (f *Folders) Create(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	var params createFolderPayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if params.Name == "" {
		handleJSONError(w, app.ErrFolderNameRequired, "name is not provided")
		return
	}

	var count int64
	err := f.app.DB.Model(&database.Folder{}).
		Where("user_id = ? AND name = ? AND deleted = ?", user.ID, params.Name, false).
		Count(&count).Error
	if err != nil {
		handleJSONError(w, errors.Wrap(err, "counting folders"), "checking for duplicate folder")
		return
	}
	if count > 0 {
		http.Error(w, "duplicate folder name", http.StatusConflict)
		return
	}

	folder, err := f.app.CreateFolder(*user, params.Name)
	if err != nil {
		handleJSONError(w, err, "creating folder")
		return
	}

	resp := CreateFolderResp{
		Folder: presenters.PresentFolder(folder),
	}
	respondJSON(w, http.StatusCreated, resp)
}

type updateFolderPayload struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	ThumbnailURI    *string `json:"thumbnail_uri"`
	LastPageAddedOn *int64  `json:"last_page_added_on"`
}

// UpdateFolderResp is the response from update folder endpoint
type UpdateFolderResp struct {
	Folder presenters.Folder `json:"folder"`
}

// Update handles PATCH /v1/folders/{folderUUID}
func (f *Folders) Update(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	folderUUID := vars["folderUUID"]

	var params updateFolderPayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	folder, err := f.app.GetUserFolderByUUID(user.ID, folderUUID)
	if err != nil {
		handleJSONError(w, err, "finding folder")
		return
	}
	if folder == nil {
		handleJSONError(w, app.ErrNotFound, "folder not found")
		return
	}

	tx := f.app.DB.Begin()

	updated, err := f.app.UpdateFolder(tx, *user, *folder, app.UpdateFolderParams{
		Name:            params.Name,
		Description:     params.Description,
		ThumbnailURI:    params.ThumbnailURI,
		LastPageAddedOn: params.LastPageAddedOn,
	})
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "updating folder")
		return
	}

	tx.Commit()

	resp := UpdateFolderResp{
		Folder: presenters.PresentFolder(updated),
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeleteFolderResp is the response from delete folder endpoint
type DeleteFolderResp struct {
	Status int               `json:"status"`
	Folder presenters.Folder `json:"folder"`
}

// Delete handles DELETE /v1/folders/{folderUUID}
func (f *Folders) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	folderUUID := vars["folderUUID"]

	folder, err := f.app.GetUserFolderByUUID(user.ID, folderUUID)
	if err != nil {
		handleJSONError(w, err, "finding folder")
		return
	}
	if folder == nil {
		handleJSONError(w, app.ErrNotFound, "folder not found")
		return
	}

	tx := f.app.DB.Begin()

	deleted, err := f.app.DeleteFolder(tx, *user, *folder)
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "deleting folder")
		return
	}

	tx.Commit()

	resp := DeleteFolderResp{
		Status: http.StatusOK,
		Folder: presenters.PresentFolder(deleted),
	}
	respondJSON(w, http.StatusOK, resp)
}

// folderSummary is a minimal folder representation for listing
type folderSummary struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Index handles GET /v1/folders
func (f *Folders) Index(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	var folders []database.Folder
	err := f.app.DB.Where("user_id = ? AND deleted = ?", user.ID, false).
		Order("name ASC").Find(&folders).Error
	if err != nil {
		handleJSONError(w, errors.Wrap(err, "finding folders"), "getting folders")
		return
	}

	resp := []folderSummary{}
	for _, folder := range folders {
		resp = append(resp, folderSummary{
			UUID: folder.UUID,
			Name: folder.Name,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}
