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

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/context"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func setupExpiredSession(db *gorm.DB, user database.User) database.Session {
	session := database.Session{
		Key:       "expired-session-key",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour * 24),
	}
	if err := db.Save(&session).Error; err != nil {
		panic(errors.Wrap(err, "preparing expired session"))
	}

	return session
}

func TestAuth(t *testing.T) {
	// the handler records which user the middleware authenticated
	newHandler := func(gotUser **database.User) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			*gotUser = context.User(r.Context())
			w.WriteHeader(http.StatusOK)
		}
	}

	t.Run("valid session in header", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		session := testutils.SetupSession(db, user)

		var gotUser *database.User
		server := httptest.NewServer(Auth(db, newHandler(&gotUser)))
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "GET", "/", "")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.Key))
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status code mismatch")

		if gotUser == nil {
			t.Fatal("user should have been set in the context")
		}
		assert.Equal(t, gotUser.ID, user.ID, "user id mismatch")
	})

	t.Run("valid session in cookie", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		session := testutils.SetupSession(db, user)

		var gotUser *database.User
		server := httptest.NewServer(Auth(db, newHandler(&gotUser)))
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "GET", "/", "")
		req.AddCookie(&http.Cookie{Name: "id", Value: session.Key, HttpOnly: true, Path: "/"})
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusOK, "status code mismatch")

		if gotUser == nil {
			t.Fatal("user should have been set in the context")
		}
		assert.Equal(t, gotUser.ID, user.ID, "user id mismatch")
	})

	t.Run("expired session", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		session := setupExpiredSession(db, user)

		var gotUser *database.User
		server := httptest.NewServer(Auth(db, newHandler(&gotUser)))
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "GET", "/", "")
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.Key))
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status code mismatch")

		if gotUser != nil {
			t.Error("user should not have been set in the context")
		}
	})

	t.Run("nonexistent session", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		testutils.SetupUserData(db, "alice@example.com", "pass1234")

		var gotUser *database.User
		server := httptest.NewServer(Auth(db, newHandler(&gotUser)))
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "GET", "/", "")
		req.Header.Set("Authorization", "Bearer nonexistent-key")
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status code mismatch")
	})

	t.Run("no credential", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		var gotUser *database.User
		server := httptest.NewServer(Auth(db, newHandler(&gotUser)))
		defer server.Close()

		// Execute
		req := testutils.MakeReq(server.URL, "GET", "/", "")
		res := testutils.HTTPDo(t, req)

		// Test
		assert.StatusCodeEquals(t, res.StatusCode, http.StatusUnauthorized, "status code mismatch")

		// the stale session cookie is unset on the way out
		cookie := testutils.GetCookieByName(res.Cookies(), "id")
		if cookie == nil {
			t.Fatal("an unset cookie should have been sent")
		}
		assert.Equal(t, cookie.Value, "", "cookie value should be empty")
	})
}
