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

package presenters

import (
	"time"

	"github.com/leafnotes/leaf/pkg/server/database"
)

// Folder is a presented folder
type Folder struct {
	UUID            string    `json:"uuid"`
	USN             int       `json:"usn"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	ThumbnailURI    *string   `json:"thumbnail_uri"`
	PageCount       int       `json:"page_count"`
	LastPageAddedOn int64     `json:"last_page_added_on"`
}

// PresentFolder presents a folder
func PresentFolder(folder database.Folder) Folder {
	return Folder{
		UUID:            folder.UUID,
		USN:             folder.USN,
		CreatedAt:       FormatTS(folder.CreatedAt),
		UpdatedAt:       FormatTS(folder.UpdatedAt),
		Name:            folder.Name,
		Description:     folder.Description,
		ThumbnailURI:    folder.ThumbnailURI,
		PageCount:       folder.PageCount,
		LastPageAddedOn: folder.LastPageAddedOn,
	}
}

// PresentFolders presents folders
func PresentFolders(folders []database.Folder) []Folder {
	ret := []Folder{}

	for _, folder := range folders {
		f := PresentFolder(folder)
		ret = append(ret, f)
	}

	return ret
}
