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

// NewAlarms creates a new Alarms controller
func NewAlarms(app *app.App) *Alarms {
	return &Alarms{
		app: app,
	}
}

// Alarms is an alarms controller
type Alarms struct {
	app *app.App
}

type createAlarmPayload struct {
	PageUUID      string `json:"page_uuid"`
	NextTriggerAt *int64 `json:"next_trigger_at"`
}

// CreateAlarmResp is the response from create alarm endpoint
type CreateAlarmResp struct {
	Result presenters.Alarm `json:"result"`
}

// Create handles POST /v1/alarms
func (a *Alarms) Create(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	var params createAlarmPayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	// The alarm must point at a page the user owns
	if _, err := operations.GetPage(a.app.DB, params.PageUUID, user); err != nil {
		handleJSONError(w, err, "finding page")
		return
	}

	alarm, err := a.app.CreateAlarm(*user, app.CreateAlarmParams{
		PageUUID:      params.PageUUID,
		NextTriggerAt: params.NextTriggerAt,
	})
	if err != nil {
		handleJSONError(w, err, "creating alarm")
		return
	}

	resp := CreateAlarmResp{
		Result: presenters.PresentAlarm(alarm),
	}
	respondJSON(w, http.StatusCreated, resp)
}

type updateAlarmPayload struct {
	PageUUID      *string `json:"page_uuid"`
	NextTriggerAt *int64  `json:"next_trigger_at"`
}

// UpdateAlarmResp is the response from update alarm endpoint
type UpdateAlarmResp struct {
	Status int              `json:"status"`
	Result presenters.Alarm `json:"result"`
}

// Update handles PATCH /v1/alarms/{alarmUUID}
func (a *Alarms) Update(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	alarmUUID := vars["alarmUUID"]

	var params updateAlarmPayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	alarm, err := a.app.GetUserAlarmByUUID(user.ID, alarmUUID)
	if err != nil {
		handleJSONError(w, err, "finding alarm")
		return
	}
	if alarm == nil {
		handleJSONError(w, app.ErrNotFound, "alarm not found")
		return
	}

	if params.PageUUID != nil {
		if _, err := operations.GetPage(a.app.DB, *params.PageUUID, user); err != nil {
			handleJSONError(w, err, "finding page")
			return
		}
	}

	tx := a.app.DB.Begin()

	updated, err := a.app.UpdateAlarm(tx, *user, *alarm, app.UpdateAlarmParams{
		PageUUID:      params.PageUUID,
		NextTriggerAt: params.NextTriggerAt,
	})
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "updating alarm")
		return
	}

	tx.Commit()

	resp := UpdateAlarmResp{
		Status: http.StatusOK,
		Result: presenters.PresentAlarm(updated),
	}
	respondJSON(w, http.StatusOK, resp)
}

// DeleteAlarmResp is the response from delete alarm endpoint
type DeleteAlarmResp struct {
	Status int              `json:"status"`
	Result presenters.Alarm `json:"result"`
}

// Delete handles DELETE /v1/alarms/{alarmUUID}
func (a *Alarms) Delete(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	vars := mux.Vars(r)
	alarmUUID := vars["alarmUUID"]

	alarm, err := a.app.GetUserAlarmByUUID(user.ID, alarmUUID)
	if err != nil {
		handleJSONError(w, err, "finding alarm")
		return
	}
	if alarm == nil {
		handleJSONError(w, app.ErrNotFound, "alarm not found")
		return
	}

	tx := a.app.DB.Begin()

	deleted, err := a.app.DeleteAlarm(tx, *user, *alarm)
	if err != nil {
		tx.Rollback()
		handleJSONError(w, err, "deleting alarm")
		return
	}

	tx.Commit()

	resp := DeleteAlarmResp{
		Status: http.StatusOK,
		Result: presenters.PresentAlarm(deleted),
	}
	respondJSON(w, http.StatusOK, resp)
}
