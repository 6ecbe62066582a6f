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

// Package output provides functions to print informations on the terminal
// in a consistent manner
package output

import (
	"fmt"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
)

func formatTS(ts int64) string {
	return time.Unix(ts, 0).Format("Jan 2, 2006 3:04pm (MST)")
}

// PageInfo prints a page information. folderName may be empty for a page
// that belongs to no folder.
func PageInfo(page database.Page, folderName string) {
	if folderName != "" {
		log.Infof("folder: %s\n", folderName)
	}
	log.Infof("title: %s\n", page.Title)
	log.Infof("created at: %s\n", formatTS(page.AddedOn))
	if page.EditedOn != 0 {
		log.Infof("updated at: %s\n", formatTS(page.EditedOn))
	}
	log.Infof("page id: %d\n", page.RowID)
	log.Infof("page uuid: %s\n", page.UUID)

	fmt.Printf("\n------------------------content------------------------\n")
	fmt.Printf("%s", page.Body)
	fmt.Printf("\n-------------------------------------------------------\n")
}

// PageContent prints the body of a page and nothing else
func PageContent(page database.Page) {
	fmt.Printf("%s", page.Body)
}

// FolderInfo prints a folder information
func FolderInfo(folder database.Folder) {
	log.Infof("folder name: %s\n", folder.Name)
	log.Infof("folder uuid: %s\n", folder.UUID)
	log.Infof("page count: %d\n", folder.PageCount)
}

// ReminderLine prints a one-line summary of a reminder
func ReminderLine(item database.ReminderItem) {
	var schedule string
	if item.Alarm.NextTriggerAt.Valid {
		schedule = formatTS(item.Alarm.NextTriggerAt.Int64)
	} else {
		schedule = "unscheduled"
	}

	title := item.PageTitle
	if title == "" {
		title = "(untitled)"
	}

	log.Plainf("%s  %s (sent %d)\n", schedule, title, item.Alarm.SentCount)
}
