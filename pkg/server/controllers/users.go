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
	"errors"
	"net/http"
	"time"

	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/log"
	"github.com/leafnotes/leaf/pkg/server/token"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// NewUsers creates a new Users controller
func NewUsers(app *app.App) *Users {
	return &Users{
		app: app,
	}
}

// Users is a user controller
type Users struct {
	app *app.App
}

// LoginForm is the form data for log in
type LoginForm struct {
	Email    string `schema:"email" json:"email"`
	Password string `schema:"password" json:"password"`
}

func (u *Users) login(form LoginForm) (*database.User, *database.Session, error) {
	if form.Email == "" {
		return nil, nil, app.ErrEmailRequired
	}
	if form.Password == "" {
		return nil, nil, app.ErrPasswordRequired
	}

	user, err := u.app.Authenticate(form.Email, form.Password)
	if err != nil {
		// If the user is not found, treat it as invalid login
		if err == app.ErrNotFound {
			return nil, nil, app.ErrLoginInvalid
		}

		return nil, nil, err
	}

	s, err := u.app.SignIn(user)
	if err != nil {
		return nil, nil, err
	}

	return user, s, nil
}

// Login handles login
func (u *Users) Login(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	user, session, err := u.login(form)
	if err != nil {
		handleJSONError(w, err, "logging in user")
		return
	}

	respondWithSession(w, http.StatusOK, session, user.UUID)
}

func (u *Users) logout(r *http.Request) (bool, error) {
	key, err := GetCredential(r)
	if err != nil {
		return false, pkgErrors.Wrap(err, "getting credentials")
	}

	if key == "" {
		return false, nil
	}

	if err = u.app.DeleteSession(key); err != nil {
		return false, pkgErrors.Wrap(err, "deleting session")
	}

	return true, nil
}

// Logout handles logout
func (u *Users) Logout(w http.ResponseWriter, r *http.Request) {
	ok, err := u.logout(r)
	if err != nil {
		handleJSONError(w, err, "logging out")
		return
	}

	if ok {
		unsetSessionCookie(w)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (u *Users) logoutOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "POST")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, CLI-Version")
}

// RegistrationForm is the form data for registering
type RegistrationForm struct {
	Email                string `schema:"email" json:"email"`
	Password             string `schema:"password" json:"password"`
	PasswordConfirmation string `schema:"password_confirmation" json:"password_confirmation"`
}

// Register handles register
func (u *Users) Register(w http.ResponseWriter, r *http.Request) {
	var form RegistrationForm
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	user, err := u.app.CreateUser(form.Email, form.Password, form.PasswordConfirmation)
	if err != nil {
		handleJSONError(w, err, "creating user")
		return
	}

	session, err := u.app.SignIn(&user)
	if err != nil {
		handleJSONError(w, err, "signing in a user")
		return
	}

	if err := u.app.SendWelcomeEmail(form.Email); err != nil {
		log.ErrorWrap(err, "sending welcome email")
	}

	respondWithSession(w, http.StatusCreated, session, user.UUID)
}

type createResetTokenPayload struct {
	Email string `schema:"email" json:"email"`
}

// CreateResetToken issues a password reset token and emails it to the user.
// It responds with 204 regardless of whether the email matches an account.
func (u *Users) CreateResetToken(w http.ResponseWriter, r *http.Request) {
	var form createResetTokenPayload
	if err := parseRequestData(r, &form); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if form.Email == "" {
		handleJSONError(w, app.ErrEmailRequired, "email is not provided")
		return
	}

	var user database.User
	err := u.app.DB.Where("email = ?", form.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		handleJSONError(w, err, "finding user")
		return
	}

	resetToken, err := token.Create(u.app.DB, user.ID, database.TokenTypeResetPassword)
	if err != nil {
		handleJSONError(w, err, "generating token")
		return
	}

	if err := u.app.SendPasswordResetEmail(user.Email.String, resetToken.Value); err != nil {
		handleJSONError(w, err, "sending password reset email")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordPayload struct {
	Password             string `schema:"password" json:"password"`
	PasswordConfirmation string `schema:"password_confirmation" json:"password_confirmation"`
	Token                string `schema:"token" json:"token"`
}

// ResetPassword resets the password of the user that the given token belongs to
func (u *Users) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var params resetPasswordPayload
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if params.Password != params.PasswordConfirmation {
		handleJSONError(w, app.ErrPasswordConfirmationMismatch, "password mismatch")
		return
	}

	var resetToken database.Token
	err := u.app.DB.Where("value = ? AND type = ? AND used_at IS NULL", params.Token, database.TokenTypeResetPassword).First(&resetToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		handleJSONError(w, app.ErrInvalidToken, "invalid token")
		return
	}
	if err != nil {
		handleJSONError(w, err, "finding token")
		return
	}

	// Expire after 10 minutes
	if time.Since(resetToken.CreatedAt).Minutes() > 10 {
		handleJSONError(w, app.ErrPasswordResetTokenExpired, "expired token")
		return
	}

	var user database.User
	if err := u.app.DB.Where("id = ?", resetToken.UserID).First(&user).Error; err != nil {
		handleJSONError(w, err, "finding user")
		return
	}

	tx := u.app.DB.Begin()

	if err := app.UpdateUserPassword(tx, &user, params.Password); err != nil {
		tx.Rollback()
		handleJSONError(w, err, "updating password")
		return
	}

	if err := tx.Model(&resetToken).Update("used_at", time.Now()).Error; err != nil {
		tx.Rollback()
		handleJSONError(w, err, "updating password reset token")
		return
	}

	if err := u.app.DeleteUserSessions(tx, user.ID); err != nil {
		tx.Rollback()
		handleJSONError(w, err, "deleting user sessions")
		return
	}

	tx.Commit()

	w.WriteHeader(http.StatusNoContent)

	if err := u.app.SendPasswordResetAlertEmail(user.Email.String); err != nil {
		log.ErrorWrap(err, "sending password reset alert email")
	}
}
