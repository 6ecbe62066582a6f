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
	"github.com/leafnotes/leaf/pkg/server/operations"
	"github.com/leafnotes/leaf/pkg/server/presenters"
)

// NewPages creates a new Pages controller
func NewPages(app *app.App) *Pages {
	return &Pages{
		app: app,
	}
}

// Pages is a pages controller
type Pages struct {
	app *app.App
}

// getClient derives the client identifier from the request headers
func getClient(r *http.Request) string {
	if r.Header.Get("CLI-Version") != "" {
		return "cli"
	}

	return "api"
}

type createPagePayload struct {
	UUID       string  `json:"uuid"`
	FolderUUID *string `json:"folder_uuid"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Kind       string  `json:"kind"`
}

// CreatePageResp is the response from create page endpoint
type CreatePageResp struct {
	Result presenters.Page `json:"result"`
}

// Create handles POST /v1/pages
func (p *Pages) Create(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	var params createPagePayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if params.UUID != "" {
		existing, err := p.app.GetUserPageByUUID(user.ID, params.UUID)
		if err != nil {
			handleJSONError(w, err, "checking for duplicate page")
			return
		}
		if existing != nil {
			http.Error(w, "duplicate page uuid", http.StatusConflict)
			return
		}
	}

	if params.FolderUUID != nil {
		folder, err := p.app.GetUserFolderByUUID(user.ID, *params.FolderUUID)
		if err != nil {
			handleJSONError(w, err, "finding folder")
			return
		}
		if folder == nil {
			handleJSONError(w, app.ErrNotFound, "folder not found")
			return
		}
	}

	page, err := p.app.CreatePage(*user, app.CreatePageParams{
		UUID:       params.UUID,
		FolderUUID: params.FolderUUID,
		Title:      params.Title,
		Body:       params.Body,
		Kind:       params.Kind,
		Client:     getClient(r),
	})
	if err != nil {
		handleJSONError(w, err, "creating page")
		return
	}

	resp := CreatePageResp{
		Result: presenters.PresentPage(page),
	}
	respondJSON(w, http.StatusCreated, resp)
}

type updatePagePayload struct {
	FolderUUID *string `json:"folder_uuid"`
	Title      *string `json:"title"`
	Body       *string `json:"body"`
	Kind       *string `json:"kind"`
	Public     *bool   `json:"public"`
}

// UpdatePageResp is the response from update page endpoint
type UpdatePageResp struct {
	Status int             `json:"status"`
	Result presenters.Page `json:"result"`
}

// Update handles PATCH /v1/pages/{pageUUID}
func (p *Pages) Update(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	pageUUID := vars["pageUUID"]

	var params updatePagePayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	page, err := operations.GetPage(p.app.DB, pageUUID, user)
	if err != nil {
		handleJSONError(w, err, "finding page")
		return
	}

	if params.FolderUUID != nil {
		folder, err := p.app.GetUserFolderByUUID(user.ID, *params.FolderUUID)
		if err != nil {
			handleJSONError(w, err, "finding folder")
			return
		}
		if folder == nil {
			handleJSONError(w, app.ErrNotFound, "folder not found")
			return
		}
	}

	prevFolderUUID := page.FolderUUID

	tx := p.app.DB.Begin()

	page, err = p.app.UpdatePage(tx, *user, page, app.UpdatePageParams{
		FolderUUID: params.FolderUUID,
		Title:      params.Title,
		Body:       params.Body,
		Kind:       params.Kind,
		Public:     params.Public,
	})
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "updating page")
		return
	}

	// Keep the derived page counts fresh when the page moved between folders
	if params.FolderUUID != nil {
		if prevFolderUUID != nil && *prevFolderUUID != *params.FolderUUID {
			if err := p.app.RefreshFolderPageCount(tx, *prevFolderUUID); err != nil {
				tx.Rollback()
				handleJSONError(w, err, "refreshing folder page count")
				return
			}
		}
		if err := p.app.RefreshFolderPageCount(tx, *params.FolderUUID); err != nil {
			tx.Rollback()
			handleJSONError(w, err, "refreshing folder page count")
			return
		}
	}

	tx.Commit()

	resp := UpdatePageResp{
		Status: http.StatusOK,
		Result: presenters.PresentPage(page),
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeletePageResp is the response from delete page endpoint
type DeletePageResp struct {
	Status int             `json:"status"`
	Result presenters.Page `json:"result"`
}

// Delete handles DELETE /v1/pages/{pageUUID}
func (p *Pages) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	pageUUID := vars["pageUUID"]

	page, err := operations.GetPage(p.app.DB, pageUUID, user)
	if err != nil {
		handleJSONError(w, err, "finding page")
		return
	}

	tx := p.app.DB.Begin()

	page, err = p.app.DeletePage(tx, *user, page)
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "deleting page")
		return
	}

	tx.Commit()

	resp := DeletePageResp{
		Status: http.StatusOK,
		Result: presenters.PresentPage(page),
	}
	respondJSON(w, http.StatusOK, resp)
}
