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

import (
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/helpers"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CreateAlarmParams is the parameters for creating an alarm
type CreateAlarmParams struct {
	PageUUID      string
	NextTriggerAt *int64
}

// CreateAlarm creates an alarm with the next usn and updates the user's max_usn
func (a *App) CreateAlarm(user database.User, p CreateAlarmParams) (database.Alarm, error) {
	if p.PageUUID == "" {
		return database.Alarm{}, ErrPageUUIDRequired
	}

	tx := a.DB.Begin()

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		tx.Rollback()
		return database.Alarm{}, errors.Wrap(err, "incrementing user max_usn")
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		tx.Rollback()
		return database.Alarm{}, err
	}

	alarm := database.Alarm{
		UUID:          uuid,
		UserID:        user.ID,
		PageUUID:      p.PageUUID,
		NextTriggerAt: p.NextTriggerAt,
		AddedOn:       a.Clock.Now().Unix(),
		USN:           nextUSN,
	}
	if err := tx.Create(&alarm).Error; err != nil {
		tx.Rollback()
		return alarm, errors.Wrap(err, "inserting alarm")
	}

	tx.Commit()

	return alarm, nil
}

// UpdateAlarmParams is the parameters for updating an alarm
type UpdateAlarmParams struct {
	PageUUID *string
	// NextTriggerAt set to nil leaves the trigger unchanged; to
	// unschedule, set ClearTrigger
	NextTriggerAt *int64
	ClearTrigger  bool
}

// UpdateAlarm updates an alarm with the next usn and updates the user's max_usn
func (a *App) UpdateAlarm(tx *gorm.DB, user database.User, alarm database.Alarm, p UpdateAlarmParams) (database.Alarm, error) {
	if user.ID != alarm.UserID {
		return alarm, ErrNotAllowed
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return alarm, errors.Wrap(err, "incrementing user max_usn")
	}

	if p.PageUUID != nil {
		alarm.PageUUID = *p.PageUUID
	}
	if p.ClearTrigger {
		alarm.NextTriggerAt = nil
	} else if p.NextTriggerAt != nil {
		alarm.NextTriggerAt = p.NextTriggerAt
	}

	alarm.USN = nextUSN
	alarm.EditedOn = a.Clock.Now().Unix()
	alarm.Deleted = false

	if err := tx.Save(&alarm).Error; err != nil {
		return alarm, errors.Wrap(err, "editing alarm")
	}

	return alarm, nil
}

// DeleteAlarm marks an alarm deleted with the next usn and updates the user's max_usn
func (a *App) DeleteAlarm(tx *gorm.DB, user database.User, alarm database.Alarm) (database.Alarm, error) {
	if user.ID != alarm.UserID {
		return alarm, ErrNotAllowed
	}

	nextUSN, err := incrementUserUSN(tx, user.ID)
	if err != nil {
		return alarm, errors.Wrap(err, "incrementing user max_usn")
	}

	if err := tx.Model(&alarm).
		Updates(map[string]interface{}{
			"usn":             nextUSN,
			"deleted":         true,
			"next_trigger_at": nil,
			"in_flight_at":    nil,
		}).Error; err != nil {
		return alarm, errors.Wrap(err, "deleting alarm")
	}

	return alarm, nil
}

// GetUserAlarmByUUID retrieves an alarm by the uuid for the given user
func (a *App) GetUserAlarmByUUID(userID int, uuid string) (*database.Alarm, error) {
	var ret database.Alarm
	err := a.DB.Where("user_id = ? AND uuid = ?", userID, uuid).First(&ret).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "finding alarm")
	}

	return &ret, nil
}
