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

import "github.com/pkg/errors"

var (
	// ErrNotFound is an error for a nonexistent resource
	ErrNotFound = errors.New("not found")
	// ErrLoginInvalid is an error for invalid credentials
	ErrLoginInvalid = errors.New("wrong email and password combination")
	// ErrEmailRequired is an error for an empty email
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordRequired is an error for an empty password
	ErrPasswordRequired = errors.New("password is required")
	// ErrPasswordTooShort is an error for a too short password
	ErrPasswordTooShort = errors.New("password should be longer than 8 characters")
	// ErrPasswordConfirmationMismatch is an error for mismatched password confirmation
	ErrPasswordConfirmationMismatch = errors.New("password confirmation does not match password")
	// ErrDuplicateEmail is an error for an already registered email
	ErrDuplicateEmail = errors.New("email is already registered")
	// ErrInvalidToken is an error for an invalid token
	ErrInvalidToken = errors.New("invalid token")
	// ErrPasswordResetTokenExpired is an error for an expired password reset token
	ErrPasswordResetTokenExpired = errors.New("password reset token expired")
	// ErrInvalidSMTPConfig is an error for an invalid SMTP configuration
	ErrInvalidSMTPConfig = errors.New("SMTP is not configured")
	// ErrFolderNameRequired is an error for an empty folder name
	ErrFolderNameRequired = errors.New("folder name is required")
	// ErrPageUUIDRequired is an error for a missing page uuid reference
	ErrPageUUIDRequired = errors.New("page uuid is required")
	// ErrNotAllowed is an error for a resource owned by another user
	ErrNotAllowed = errors.New("not allowed")
	// ErrUserHasExistingResources is an error for removing a user that still owns resources
	ErrUserHasExistingResources = errors.New("user still has pages, folders or alarms")
)
