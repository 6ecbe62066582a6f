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

// Alarm is a presented alarm
type Alarm struct {
	UUID               string    `json:"uuid"`
	PageUUID           string    `json:"page_uuid"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	NextTriggerAt      *int64    `json:"next_trigger_at"`
	SentCount          int       `json:"sent_count"`
	LastNotificationID *string   `json:"last_notification_id"`
	USN                int       `json:"usn"`
}

// PresentAlarm presents an alarm
func PresentAlarm(alarm database.Alarm) Alarm {
	return Alarm{
		UUID:               alarm.UUID,
		PageUUID:           alarm.PageUUID,
		CreatedAt:          FormatTS(alarm.CreatedAt),
		UpdatedAt:          FormatTS(alarm.UpdatedAt),
		NextTriggerAt:      alarm.NextTriggerAt,
		SentCount:          alarm.SentCount,
		LastNotificationID: alarm.LastNotificationID,
		USN:                alarm.USN,
	}
}
