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

// Package permissions provides utilities for checking permissions for
// various resources
package permissions

import (
	"github.com/leafnotes/leaf/pkg/server/database"
)

// ViewPage checks if the given user can view the given page
func ViewPage(user *database.User, page database.Page) bool {
	if page.Public {
		return true
	}
	if user == nil {
		return false
	}

	return page.UserID == user.ID
}

// ViewFolder checks if the given user can view the given folder
func ViewFolder(user *database.User, folder database.Folder) bool {
	if user == nil {
		return false
	}

	return folder.UserID == user.ID
}

// ViewAlarm checks if the given user can view the given alarm
func ViewAlarm(user *database.User, alarm database.Alarm) bool {
	if user == nil {
		return false
	}

	return alarm.UserID == user.ID
}
