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

import (
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// User is a model for a user
type User struct {
	Model
	UUID        string     `json:"uuid" gorm:"type:text;index"`
	Email       NullString `gorm:"index"`
	Password    NullString `json:"-"`
	LastLoginAt *time.Time `json:"-"`
	// MaxUSN is the highest update sequence number issued for this user.
	// Every accepted mutation increments it and stamps the row.
	MaxUSN int `json:"-" gorm:"default:0"`
	// FullSyncBefore forces clients that synced before this timestamp
	// to perform a full sync instead of a stepwise one
	FullSyncBefore int64 `json:"-" gorm:"default:0"`
}

// Folder is a model for a folder that groups pages
type Folder struct {
	Model
	UUID            string  `json:"uuid" gorm:"uniqueIndex;type:text"`
	UserID          int     `json:"user_id" gorm:"index"`
	Name            string  `json:"name" gorm:"index"`
	Description     *string `json:"description"`
	ThumbnailURI    *string `json:"thumbnail_uri"`
	Pages           []Page  `json:"pages" gorm:"foreignKey:FolderUUID;references:UUID"`
	PageCount       int     `json:"page_count" gorm:"default:0"`
	LastPageAddedOn int64   `json:"last_page_added_on" gorm:"default:0"`
	AddedOn         int64   `json:"added_on"`
	EditedOn        int64   `json:"edited_on"`
	USN             int     `json:"-" gorm:"index"`
	Deleted         bool    `json:"-" gorm:"default:false"`
}

// Page is a model for a note page
type Page struct {
	Model
	UUID        string  `json:"uuid" gorm:"uniqueIndex;type:text"`
	Folder      *Folder `json:"folder" gorm:"foreignKey:FolderUUID;references:UUID"`
	User        User    `json:"user"`
	UserID      int     `json:"user_id" gorm:"index"`
	FolderUUID  *string `json:"folder_uuid" gorm:"index;type:text"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Kind        string  `json:"kind" gorm:"default:text"`
	Public      bool    `json:"public" gorm:"default:false"`
	ParentCount int     `json:"parent_count" gorm:"default:0"`
	ChildCount  int     `json:"child_count" gorm:"default:0"`
	AddedOn     int64   `json:"added_on"`
	EditedOn    int64   `json:"edited_on"`
	USN         int     `json:"-" gorm:"index"`
	Deleted     bool    `json:"-" gorm:"default:false"`
	Client      string  `gorm:"index"`
}

// Alarm is a model for a page reminder
type Alarm struct {
	Model
	UUID     string `json:"uuid" gorm:"uniqueIndex;type:text"`
	UserID   int    `json:"user_id" gorm:"index"`
	Page     Page   `json:"page" gorm:"foreignKey:PageUUID;references:UUID"`
	PageUUID string `json:"page_uuid" gorm:"index;type:text"`
	// NextTriggerAt is the next firing time in unix seconds. Null means
	// the alarm exists but is unscheduled.
	NextTriggerAt *int64 `json:"next_trigger_at" gorm:"index"`
	SentCount     int    `json:"sent_count" gorm:"default:0"`
	// LastNotificationID is rotated on every firing so that receivers
	// can deduplicate redelivered notifications
	LastNotificationID *string `json:"last_notification_id"`
	// InFlightAt marks the alarm as claimed by a processor. A claim is
	// taken with a conditional update so two processors cannot hold it.
	InFlightAt *time.Time `json:"-"`
	AddedOn    int64      `json:"added_on"`
	EditedOn   int64      `json:"edited_on"`
	USN        int        `json:"-" gorm:"index"`
	Deleted    bool       `json:"-" gorm:"default:false"`
}

// Token is a model for a token
type Token struct {
	Model
	UserID int    `gorm:"index"`
	Value  string `gorm:"index"`
	Type   string
	UsedAt *time.Time
}

// Session represents a user session
type Session struct {
	Model
	UserID     int    `gorm:"index"`
	Key        string `gorm:"index"`
	LastUsedAt time.Time
	ExpiresAt  time.Time
}
