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
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/context"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/pkg/errors"
)

// NewSync creates a new Sync controller
func NewSync(app *app.App) *Sync {
	return &Sync{
		app: app,
	}
}

// Sync is a sync controller
type Sync struct {
	app *app.App
}

// SyncFragment contains a piece of information about the server's state
// after the client's last known state
type SyncFragment struct {
	FragMaxUSN      int              `json:"frag_max_usn"`
	UserMaxUSN      int              `json:"user_max_usn"`
	CurrentTime     int64            `json:"current_time"`
	Pages           []SyncFragPage   `json:"pages"`
	Folders         []SyncFragFolder `json:"folders"`
	Alarms          []SyncFragAlarm  `json:"alarms"`
	ExpungedPages   []string         `json:"expunged_pages"`
	ExpungedFolders []string         `json:"expunged_folders"`
	ExpungedAlarms  []string         `json:"expunged_alarms"`
}

// SyncFragPage represents a page in a sync fragment
type SyncFragPage struct {
	UUID        string    `json:"uuid"`
	FolderUUID  *string   `json:"folder_uuid"`
	USN         int       `json:"usn"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AddedOn     int64     `json:"added_on"`
	EditedOn    int64     `json:"edited_on"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	Public      bool      `json:"public"`
	ParentCount int       `json:"parent_count"`
	ChildCount  int       `json:"child_count"`
	Deleted     bool      `json:"deleted"`
}

// SyncFragFolder represents a folder in a sync fragment
type SyncFragFolder struct {
	UUID            string    `json:"uuid"`
	USN             int       `json:"usn"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AddedOn         int64     `json:"added_on"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	ThumbnailURI    *string   `json:"thumbnail_uri"`
	PageCount       int       `json:"page_count"`
	LastPageAddedOn int64     `json:"last_page_added_on"`
	Deleted         bool      `json:"deleted"`
}

// SyncFragAlarm represents an alarm in a sync fragment
type SyncFragAlarm struct {
	UUID               string    `json:"uuid"`
	PageUUID           string    `json:"page_uuid"`
	USN                int       `json:"usn"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	AddedOn            int64     `json:"added_on"`
	EditedOn           int64     `json:"edited_on"`
	NextTriggerAt      *int64    `json:"next_trigger_at"`
	SentCount          int       `json:"sent_count"`
	LastNotificationID *string   `json:"last_notification_id"`
	Deleted            bool      `json:"deleted"`
}

// GetSyncFragmentResp is the response from the get sync fragment endpoint
type GetSyncFragmentResp struct {
	Fragment SyncFragment `json:"fragment"`
}

// GetSyncStateResp is the response from the get sync state endpoint
type GetSyncStateResp struct {
	FullSyncBefore int64 `json:"full_sync_before"`
	MaxUSN         int   `json:"max_usn"`
	CurrentTime    int64 `json:"current_time"`
}

// queryParamError is an error for an invalid query parameter value
type queryParamError struct {
	key     string
	value   string
	message string
}

func (e *queryParamError) Error() string {
	return fmt.Sprintf("invalid query parameter %s=%s: %s", e.key, e.value, e.message)
}

const (
	defaultSyncFragmentLimit = 100
	maxSyncFragmentLimit     = 100
)

func parseGetSyncFragmentQuery(q url.Values) (int, int, error) {
	afterUSNStr := q.Get("after_usn")
	limitStr := q.Get("limit")

	var afterUSN int
	if afterUSNStr != "" {
		var err error
		afterUSN, err = strconv.Atoi(afterUSNStr)
		if err != nil {
			return 0, 0, &queryParamError{
				key:     "after_usn",
				value:   afterUSNStr,
				message: "must be an integer",
			}
		}
	}

	limit := defaultSyncFragmentLimit
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, &queryParamError{
				key:     "limit",
				value:   limitStr,
				message: "must be an integer",
			}
		}

		if limit > maxSyncFragmentLimit {
			return 0, 0, &queryParamError{
				key:     "limit",
				value:   limitStr,
				message: fmt.Sprintf("maximum value is %d", maxSyncFragmentLimit),
			}
		}
	}

	return afterUSN, limit, nil
}

func presentSyncFragPages(pages []database.Page) []SyncFragPage {
	ret := []SyncFragPage{}

	for _, page := range pages {
		p := SyncFragPage{
			UUID:        page.UUID,
			FolderUUID:  page.FolderUUID,
			USN:         page.USN,
			CreatedAt:   page.CreatedAt,
			UpdatedAt:   page.UpdatedAt,
			AddedOn:     page.AddedOn,
			EditedOn:    page.EditedOn,
			Title:       page.Title,
			Body:        page.Body,
			Kind:        page.Kind,
			Public:      page.Public,
			ParentCount: page.ParentCount,
			ChildCount:  page.ChildCount,
			Deleted:     page.Deleted,
		}
		ret = append(ret, p)
	}

	return ret
}

func presentSyncFragFolders(folders []database.Folder) []SyncFragFolder {
	ret := []SyncFragFolder{}

	for _, folder := range folders {
		f := SyncFragFolder{
			UUID:            folder.UUID,
			USN:             folder.USN,
			CreatedAt:       folder.CreatedAt,
			UpdatedAt:       folder.UpdatedAt,
			AddedOn:         folder.AddedOn,
			Name:            folder.Name,
			Description:     folder.Description,
			ThumbnailURI:    folder.ThumbnailURI,
			PageCount:       folder.PageCount,
			LastPageAddedOn: folder.LastPageAddedOn,
			Deleted:         folder.Deleted,
		}
		ret = append(ret, f)
	}

	return ret
}

func presentSyncFragAlarms(alarms []database.Alarm) []SyncFragAlarm {
	ret := []SyncFragAlarm{}

	for _, alarm := range alarms {
		a := SyncFragAlarm{
			UUID:               alarm.UUID,
			PageUUID:           alarm.PageUUID,
			USN:                alarm.USN,
			CreatedAt:          alarm.CreatedAt,
			UpdatedAt:          alarm.UpdatedAt,
			AddedOn:            alarm.AddedOn,
			EditedOn:           alarm.EditedOn,
			NextTriggerAt:      alarm.NextTriggerAt,
			SentCount:          alarm.SentCount,
			LastNotificationID: alarm.LastNotificationID,
			Deleted:            alarm.Deleted,
		}
		ret = append(ret, a)
	}

	return ret
}

// fragmentCutoff returns the highest usn that fits in a fragment of the given
// limit, given the usns of all candidate items. The zero return value means
// the fragment is empty.
func fragmentCutoff(usns []int, limit int) int {
	if len(usns) == 0 {
		return 0
	}

	sort.Ints(usns)

	if len(usns) > limit {
		return usns[limit-1]
	}

	return usns[len(usns)-1]
}

func (s *Sync) getFragment(user database.User, afterUSN, limit int) (SyncFragment, error) {
	db := s.app.DB

	var pages []database.Page
	if err := db.Where("user_id = ? AND usn > ?", user.ID, afterUSN).
		Order("usn ASC").Limit(limit).Find(&pages).Error; err != nil {
		return SyncFragment{}, errors.Wrap(err, "finding pages")
	}

	var folders []database.Folder
	if err := db.Where("user_id = ? AND usn > ?", user.ID, afterUSN).
		Order("usn ASC").Limit(limit).Find(&folders).Error; err != nil {
		return SyncFragment{}, errors.Wrap(err, "finding folders")
	}

	var alarms []database.Alarm
	if err := db.Where("user_id = ? AND usn > ?", user.ID, afterUSN).
		Order("usn ASC").Limit(limit).Find(&alarms).Error; err != nil {
		return SyncFragment{}, errors.Wrap(err, "finding alarms")
	}

	usns := []int{}
	for _, page := range pages {
		usns = append(usns, page.USN)
	}
	for _, folder := range folders {
		usns = append(usns, folder.USN)
	}
	for _, alarm := range alarms {
		usns = append(usns, alarm.USN)
	}

	cutoff := fragmentCutoff(usns, limit)

	fragPages := []database.Page{}
	for _, page := range pages {
		if page.USN <= cutoff {
			fragPages = append(fragPages, page)
		}
	}
	fragFolders := []database.Folder{}
	for _, folder := range folders {
		if folder.USN <= cutoff {
			fragFolders = append(fragFolders, folder)
		}
	}
	fragAlarms := []database.Alarm{}
	for _, alarm := range alarms {
		if alarm.USN <= cutoff {
			fragAlarms = append(fragAlarms, alarm)
		}
	}

	frag := SyncFragment{
		FragMaxUSN:      cutoff,
		UserMaxUSN:      user.MaxUSN,
		CurrentTime:     s.app.Clock.Now().Unix(),
		Pages:           presentSyncFragPages(fragPages),
		Folders:         presentSyncFragFolders(fragFolders),
		Alarms:          presentSyncFragAlarms(fragAlarms),
		ExpungedPages:   []string{},
		ExpungedFolders: []string{},
		ExpungedAlarms:  []string{},
	}

	return frag, nil
}

// GetSyncFragment handles GET /v1/sync/fragment
func (s *Sync) GetSyncFragment(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	afterUSN, limit, err := parseGetSyncFragmentQuery(r.URL.Query())
	if err != nil {
		handleJSONError(w, err, "parsing query params")
		return
	}

	frag, err := s.getFragment(*user, afterUSN, limit)
	if err != nil {
		handleJSONError(w, err, "getting fragment")
		return
	}

	resp := GetSyncFragmentResp{
		Fragment: frag,
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetSyncState handles GET /v1/sync/state
func (s *Sync) GetSyncState(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())
	if user == nil {
		handleJSONError(w, app.ErrLoginInvalid, "login required")
		return
	}

	resp := GetSyncStateResp{
		FullSyncBefore: user.FullSyncBefore,
		MaxUSN:         user.MaxUSN,
		CurrentTime:    s.app.Clock.Now().Unix(),
	}
	respondJSON(w, http.StatusOK, resp)
}
