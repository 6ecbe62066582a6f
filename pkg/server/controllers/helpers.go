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

// Package controllers provides handlers for the HTTP endpoints
package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/schema"
	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/log"
	"github.com/leafnotes/leaf/pkg/server/middleware"
	"github.com/leafnotes/leaf/pkg/server/operations"
	"github.com/pkg/errors"
)

var formDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// parseForm parses the request form values into the given destination
func parseForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return errors.Wrap(err, "parsing form")
	}

	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return errors.Wrap(err, "decoding form")
	}

	return nil
}

// parseRequestData parses the request data into the given destination based on
// the Content-Type of the request. Requests without a Content-Type are treated
// as JSON because the CLI does not set the header.
func parseRequestData(r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		return parseForm(r, dst)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decoding json")
	}

	return nil
}

// getStatusCode returns the http status code for the given error
func getStatusCode(err error) int {
	cause := errors.Cause(err)

	switch cause {
	case app.ErrLoginInvalid, app.ErrInvalidToken:
		return http.StatusUnauthorized
	case app.ErrNotFound, operations.ErrPageNotFound:
		return http.StatusNotFound
	case app.ErrNotAllowed:
		return http.StatusForbidden
	case app.ErrDuplicateEmail:
		return http.StatusConflict
	case app.ErrPasswordResetTokenExpired:
		return http.StatusGone
	case app.ErrEmailRequired,
		app.ErrPasswordRequired,
		app.ErrPasswordTooShort,
		app.ErrPasswordConfirmationMismatch,
		app.ErrFolderNameRequired,
		app.ErrPageUUIDRequired,
		operations.ErrInvalidUUID:
		return http.StatusBadRequest
	}

	var paramErr *queryParamError
	if errors.As(err, &paramErr) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// handleJSONError logs the error and responds with an appropriate status code
// and a plain text message
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	statusCode := getStatusCode(err)

	if statusCode == http.StatusInternalServerError {
		log.ErrorWrap(err, msg)
		http.Error(w, http.StatusText(statusCode), statusCode)
		return
	}

	http.Error(w, errors.Cause(err).Error(), statusCode)
}

// respondJSON encodes the given payload into JSON and writes it to the response
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}

func setSessionCookie(w http.ResponseWriter, key string, expires time.Time) {
	cookie := http.Cookie{
		Name:     "id",
		Value:    key,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
	}
	http.SetCookie(w, &cookie)
}

func unsetSessionCookie(w http.ResponseWriter) {
	expire := time.Now().Add(time.Hour * -24 * 30)
	cookie := http.Cookie{
		Name:     "id",
		Value:    "",
		Expires:  expire,
		Path:     "/",
		HttpOnly: true,
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.SetCookie(w, &cookie)
}

// sessionResponse is a response containing a session information
type sessionResponse struct {
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
	UserUUID  string `json:"user_uuid"`
}

func respondWithSession(w http.ResponseWriter, statusCode int, session *database.Session, userUUID string) {
	setSessionCookie(w, session.Key, session.ExpiresAt)

	resp := sessionResponse{
		Key:       session.Key,
		ExpiresAt: session.ExpiresAt.Unix(),
		UserUUID:  userUUID,
	}
	respondJSON(w, statusCode, resp)
}

// GetCredential extracts the session key of the request
func GetCredential(r *http.Request) (string, error) {
	return middleware.GetCredential(r)
}
