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

package testutils

import (
	"testing"

	"github.com/leafnotes/leaf/pkg/cli/database"
)

// TestUserUUID is the user that fixture rows belong to
const TestUserUUID = "user-uuid-1"

// Setup1 sets up a leaf env with one synced page in one of two folders
func Setup1(t *testing.T, db *database.DB) {
	f1UUID := "recipes-folder-uuid"
	f2UUID := "travel-folder-uuid"

	database.MustExec(t, "setting up folder 1", db, "INSERT INTO folders (uuid, user_uuid, name, added_on) VALUES (?, ?, ?, ?)", f1UUID, TestUserUUID, "recipes", 1515199900)
	database.MustExec(t, "setting up folder 2", db, "INSERT INTO folders (uuid, user_uuid, name, added_on) VALUES (?, ?, ?, ?)", f2UUID, TestUserUUID, "travel", 1515199900)

	database.MustExec(t, "setting up page 1", db, "INSERT INTO pages (uuid, user_uuid, folder_uuid, title, body, added_on) VALUES (?, ?, ?, ?, ?, ?)", "43827b9a-c2b0-4c06-a290-97991c896653", TestUserUUID, f1UUID, "sourdough", "feed the starter twice a day", 1515199943)
}

// Setup2 sets up a leaf env with synced folders, pages and a reminder
func Setup2(t *testing.T, db *database.DB) {
	f1UUID := "recipes-folder-uuid"
	f2UUID := "travel-folder-uuid"

	database.MustExec(t, "setting up folder 1", db, "INSERT INTO folders (uuid, user_uuid, name, added_on, usn) VALUES (?, ?, ?, ?, ?)", f1UUID, TestUserUUID, "recipes", 1515199900, 111)
	database.MustExec(t, "setting up folder 2", db, "INSERT INTO folders (uuid, user_uuid, name, added_on, usn) VALUES (?, ?, ?, ?, ?)", f2UUID, TestUserUUID, "travel", 1515199900, 122)

	database.MustExec(t, "setting up page 1", db, "INSERT INTO pages (uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?)", "f0d0fbb7-31ff-45ae-9f0f-4e429c0c797f", TestUserUUID, f1UUID, "p1", "p1 body", 1515199951, 11)
	database.MustExec(t, "setting up page 2", db, "INSERT INTO pages (uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?)", "43827b9a-c2b0-4c06-a290-97991c896653", TestUserUUID, f1UUID, "p2", "p2 body", 1515199943, 12)
	database.MustExec(t, "setting up page 3", db, "INSERT INTO pages (uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?)", "3e065d55-6d47-42f2-a6bf-f5844130b2d2", TestUserUUID, f2UUID, "p3", "p3 body", 1515199961, 13)

	database.MustExec(t, "setting up alarm 1", db, "INSERT INTO alarms (uuid, user_uuid, page_uuid, next_trigger_at, added_on, usn) VALUES (?, ?, ?, ?, ?, ?)", "alarm-1-uuid", TestUserUUID, "f0d0fbb7-31ff-45ae-9f0f-4e429c0c797f", 1700000000, 1515199951, 14)
}

// Setup3 sets up a leaf env with one synced folder and page
func Setup3(t *testing.T, db *database.DB) {
	f1UUID := "recipes-folder-uuid"

	database.MustExec(t, "setting up folder 1", db, "INSERT INTO folders (uuid, user_uuid, name, added_on) VALUES (?, ?, ?, ?)", f1UUID, TestUserUUID, "recipes", 1515199900)

	database.MustExec(t, "setting up page 1", db, "INSERT INTO pages (uuid, user_uuid, folder_uuid, title, body, added_on) VALUES (?, ?, ?, ?, ?, ?)", "43827b9a-c2b0-4c06-a290-97991c896653", TestUserUUID, f1UUID, "sourdough", "feed the starter twice a day", 1515199943)
}

// Setup4 sets up a leaf env with fixed page row ids
func Setup4(t *testing.T, db *database.DB) {
	f1UUID := "recipes-folder-uuid"

	database.MustExec(t, "setting up folder 1", db, "INSERT INTO folders (uuid, user_uuid, name, added_on, usn) VALUES (?, ?, ?, ?, ?)", f1UUID, TestUserUUID, "recipes", 1515199900, 111)

	database.MustExec(t, "setting up page 1", db, "INSERT INTO pages (id, uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", 1, "43827b9a-c2b0-4c06-a290-97991c896653", TestUserUUID, f1UUID, "p1", "feed the starter twice a day", 1515199943, 11)
	database.MustExec(t, "setting up page 2", db, "INSERT INTO pages (id, uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", 2, "f0d0fbb7-31ff-45ae-9f0f-4e429c0c797f", TestUserUUID, f1UUID, "p2", "shape after the second rise", 1515199951, 12)
}

// Setup5 sets up a leaf env with two folders and fixed page row ids
func Setup5(t *testing.T, db *database.DB) {
	f1UUID := "recipes-folder-uuid"
	f2UUID := "travel-folder-uuid"

	database.MustExec(t, "setting up folder 1", db, "INSERT INTO folders (uuid, user_uuid, name, added_on, usn) VALUES (?, ?, ?, ?, ?)", f1UUID, TestUserUUID, "recipes", 1515199900, 111)
	database.MustExec(t, "setting up folder 2", db, "INSERT INTO folders (uuid, user_uuid, name, added_on, usn) VALUES (?, ?, ?, ?, ?)", f2UUID, TestUserUUID, "travel", 1515199900, 122)

	database.MustExec(t, "setting up page 1", db, "INSERT INTO pages (id, uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", 1, "f0d0fbb7-31ff-45ae-9f0f-4e429c0c797f", TestUserUUID, f1UUID, "p1", "p1 body", 1515199951, 11)
	database.MustExec(t, "setting up page 2", db, "INSERT INTO pages (id, uuid, user_uuid, folder_uuid, title, body, added_on, usn) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", 2, "43827b9a-c2b0-4c06-a290-97991c896653", TestUserUUID, f1UUID, "p2", "p2 body", 1515199943, 12)
}
