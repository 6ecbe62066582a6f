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
	"time"

	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/helpers"
	"github.com/pkg/errors"
)

// alarmRepeatInterval is the distance to the next firing after a
// successful delivery, in seconds
const alarmRepeatInterval = 60 * 60 * 24

// alarmClaimTTL is how long a processing claim stays valid. A claim older
// than this belongs to a processor that died mid-flight, and the alarm
// becomes claimable again on a later scan.
const alarmClaimTTL = time.Hour

// GetDueAlarms returns the alarms that are due for processing as of now
func (a *App) GetDueAlarms() ([]database.Alarm, error) {
	now := a.Clock.Now().Unix()

	var ret []database.Alarm
	err := a.DB.Where("next_trigger_at IS NOT NULL AND next_trigger_at <= ? AND deleted = ?", now, false).
		Order("next_trigger_at ASC").Find(&ret).Error
	if err != nil {
		return nil, errors.Wrap(err, "finding due alarms")
	}

	return ret, nil
}

// ClaimAlarm atomically claims the alarm for processing. It reports false
// if another processor holds a live claim. A claim older than alarmClaimTTL
// is treated as abandoned and can be taken over.
func (a *App) ClaimAlarm(alarm *database.Alarm) (bool, error) {
	now := a.Clock.Now()

	res := a.DB.Model(&database.Alarm{}).
		Where("id = ? AND (in_flight_at IS NULL OR in_flight_at < ?)", alarm.ID, now.Add(-alarmClaimTTL)).
		Update("in_flight_at", now)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "claiming alarm")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	alarm.InFlightAt = &now

	return true, nil
}

// RotateAlarmNotificationID stamps the alarm with a fresh notification id
// for the upcoming delivery. Delivery is at-least-once; receivers use the
// id to deduplicate redelivered notifications.
func (a *App) RotateAlarmNotificationID(alarm *database.Alarm) (string, error) {
	nid, err := helpers.GenUUID()
	if err != nil {
		return "", err
	}

	if err := a.DB.Model(&database.Alarm{}).
		Where("id = ?", alarm.ID).
		Update("last_notification_id", nid).Error; err != nil {
		return "", errors.Wrap(err, "rotating notification id")
	}

	alarm.LastNotificationID = &nid

	return nid, nil
}

// MarkAlarmSent finalizes a successfully delivered alarm. It advances the
// trigger, bumps the sent count, releases the claim and stamps the row with
// the next usn so that clients pick up the change.
func (a *App) MarkAlarmSent(alarm database.Alarm) error {
	if alarm.NextTriggerAt == nil {
		return errors.New("alarm has no trigger")
	}

	tx := a.DB.Begin()

	nextUSN, err := incrementUserUSN(tx, alarm.UserID)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "incrementing user max_usn")
	}

	nextTrigger := *alarm.NextTriggerAt + alarmRepeatInterval

	if err := tx.Model(&database.Alarm{}).
		Where("id = ?", alarm.ID).
		Updates(map[string]interface{}{
			"sent_count":      alarm.SentCount + 1,
			"next_trigger_at": nextTrigger,
			"in_flight_at":    nil,
			"edited_on":       a.Clock.Now().Unix(),
			"usn":             nextUSN,
		}).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "finalizing alarm")
	}

	tx.Commit()

	return nil
}

// ReleaseAlarmClaim clears the processing claim without consuming the
// firing. The notification id is kept so that a retry reuses it.
func (a *App) ReleaseAlarmClaim(alarm database.Alarm) error {
	if err := a.DB.Model(&database.Alarm{}).
		Where("id = ?", alarm.ID).
		Update("in_flight_at", nil).Error; err != nil {
		return errors.Wrap(err, "releasing alarm claim")
	}

	return nil
}
