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

// Page is a presented page
type Page struct {
	UUID        string    `json:"uuid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	AddedOn     int64     `json:"added_on"`
	Public      bool      `json:"public"`
	ParentCount int       `json:"parent_count"`
	ChildCount  int       `json:"child_count"`
	USN         int       `json:"usn"`
	FolderUUID  *string   `json:"folder_uuid"`
}

// PresentPage presents a page
func PresentPage(page database.Page) Page {
	return Page{
		UUID:        page.UUID,
		CreatedAt:   FormatTS(page.CreatedAt),
		UpdatedAt:   FormatTS(page.UpdatedAt),
		Title:       page.Title,
		Body:        page.Body,
		Kind:        page.Kind,
		AddedOn:     page.AddedOn,
		Public:      page.Public,
		ParentCount: page.ParentCount,
		ChildCount:  page.ChildCount,
		USN:         page.USN,
		FolderUUID:  page.FolderUUID,
	}
}

// PresentPages presents pages
func PresentPages(pages []database.Page) []Page {
	ret := []Page{}

	for _, page := range pages {
		p := PresentPage(page)
		ret = append(ret, p)
	}

	return ret
}
