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
	"testing"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/testutils"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		// Execute
		user, err := a.CreateUser("alice@example.com", "pass1234", "pass1234")
		if err != nil {
			t.Fatal(errors.Wrap(err, "creating user"))
		}

		// Test
		var userCount int64
		var userRecord database.User
		testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&userRecord), "finding user")

		assert.Equal(t, userCount, int64(1), "user count mismatch")
		assert.Equal(t, userRecord.Email.String, "alice@example.com", "email mismatch")
		assert.Equal(t, userRecord.MaxUSN, 0, "max_usn mismatch")
		assert.NotEqual(t, userRecord.UUID, "", "uuid should have been generated")

		if userRecord.LastLoginAt == nil {
			t.Error("last_login_at should have been set")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(userRecord.Password.String), []byte("pass1234")); err != nil {
			t.Error("password should have been hashed from the given password")
		}
	})

	t.Run("validation", func(t *testing.T) {
		testCases := []struct {
			email                string
			password             string
			passwordConfirmation string
			expectedErr          error
		}{
			{
				email:                "",
				password:             "pass1234",
				passwordConfirmation: "pass1234",
				expectedErr:          ErrEmailRequired,
			},
			{
				email:                "alice@example.com",
				password:             "short",
				passwordConfirmation: "short",
				expectedErr:          ErrPasswordTooShort,
			},
			{
				email:                "alice@example.com",
				password:             "pass1234",
				passwordConfirmation: "pass12345",
				expectedErr:          ErrPasswordConfirmationMismatch,
			},
		}

		for _, tc := range testCases {
			t.Run(tc.expectedErr.Error(), func(t *testing.T) {
				db := testutils.InitMemoryDB(t)

				// Setup
				a := NewTest()
				a.DB = db

				// Execute
				_, err := a.CreateUser(tc.email, tc.password, tc.passwordConfirmation)

				// Test
				assert.Equal(t, err, tc.expectedErr, "error mismatch")

				var userCount int64
				testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
				assert.Equal(t, userCount, int64(0), "user count mismatch")
			})
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		_, err := a.CreateUser("alice@example.com", "pass1234", "pass1234")

		// Test
		assert.Equal(t, err, ErrDuplicateEmail, "error mismatch")

		var userCount int64
		testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
		assert.Equal(t, userCount, int64(1), "user count mismatch")
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		got, err := a.Authenticate("alice@example.com", "pass1234")
		if err != nil {
			t.Fatal(errors.Wrap(err, "authenticating"))
		}

		// Test
		assert.Equal(t, got.ID, user.ID, "user id mismatch")
	})

	t.Run("wrong password", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		testutils.SetupUserData(db, "alice@example.com", "pass1234")

		// Execute
		_, err := a.Authenticate("alice@example.com", "wrongpass")

		// Test
		assert.Equal(t, err, ErrLoginInvalid, "error mismatch")
	})

	t.Run("nonexistent email", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		// Execute
		_, err := a.Authenticate("nobody@example.com", "pass1234")

		// Test
		assert.Equal(t, err, ErrNotFound, "error mismatch")
	})
}

func TestRemoveUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")
		testutils.SetupSession(db, user)
		keep := testutils.SetupUserData(db, "bob@example.com", "pass1234")

		// Execute
		if err := a.RemoveUser("alice@example.com"); err != nil {
			t.Fatal(errors.Wrap(err, "removing user"))
		}

		// Test
		var userCount, sessionCount int64
		testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
		testutils.MustExec(t, db.Model(&database.Session{}).Count(&sessionCount), "counting sessions")

		assert.Equal(t, userCount, int64(1), "user count mismatch")
		assert.Equal(t, sessionCount, int64(0), "session count mismatch")

		var postUser database.User
		testutils.MustExec(t, db.First(&postUser), "finding remaining user")
		assert.Equal(t, postUser.ID, keep.ID, "remaining user mismatch")
	})

	t.Run("user with pages", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		user := testutils.SetupUserData(db, "alice@example.com", "pass1234")

		if _, err := a.CreatePage(user, CreatePageParams{Title: "day one"}); err != nil {
			t.Fatal(errors.Wrap(err, "preparing page"))
		}

		// Execute
		err := a.RemoveUser("alice@example.com")

		// Test
		assert.Equal(t, err, ErrUserHasExistingResources, "error mismatch")

		var userCount int64
		testutils.MustExec(t, db.Model(&database.User{}).Count(&userCount), "counting users")
		assert.Equal(t, userCount, int64(1), "user count mismatch")
	})

	t.Run("nonexistent user", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		a := NewTest()
		a.DB = db

		// Execute
		err := a.RemoveUser("nobody@example.com")

		// Test
		assert.Equal(t, err, ErrNotFound, "error mismatch")
	})
}

func TestUpdateUserPassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		user := testutils.SetupUserData(db, "alice@example.com", "oldpassword")

		// Execute
		if err := UpdateUserPassword(db, &user, "newpassword"); err != nil {
			t.Fatal(errors.Wrap(err, "updating password"))
		}

		// Test
		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")

		if err := bcrypt.CompareHashAndPassword([]byte(postUser.Password.String), []byte("newpassword")); err != nil {
			t.Error("password should have been updated to the new password")
		}
	})

	t.Run("too short", func(t *testing.T) {
		db := testutils.InitMemoryDB(t)

		// Setup
		user := testutils.SetupUserData(db, "alice@example.com", "oldpassword")

		// Execute
		err := UpdateUserPassword(db, &user, "short")

		// Test
		assert.Equal(t, err, ErrPasswordTooShort, "error mismatch")

		var postUser database.User
		testutils.MustExec(t, db.Where("id = ?", user.ID).First(&postUser), "finding user")

		if err := bcrypt.CompareHashAndPassword([]byte(postUser.Password.String), []byte("oldpassword")); err != nil {
			t.Error("password should not have been changed")
		}
	})
}
