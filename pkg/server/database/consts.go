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

package database

const (
	// TokenTypeResetPassword is a type of a token for resetting password
	TokenTypeResetPassword = "reset_password"
)

const (
	// PageKindText is the content type tag for a plain text page
	PageKindText = "text"
	// PageKindDrawing is the content type tag for a drawing page
	PageKindDrawing = "drawing"
)
