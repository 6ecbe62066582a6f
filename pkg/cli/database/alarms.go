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
	"database/sql"
	"strings"

	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

const alarmColumns = `uuid, user_uuid, page_uuid, next_trigger_at, sent_count, last_notification_id,
	added_on, edited_on, usn, deleted, dirty`

func scanAlarm(rows *sql.Rows) (Alarm, error) {
	var a Alarm
	err := rows.Scan(&a.UUID, &a.UserUUID, &a.PageUUID, &a.NextTriggerAt, &a.SentCount, &a.LastNotificationID,
		&a.AddedOn, &a.EditedOn, &a.USN, &a.Deleted, &a.Dirty)

	return a, err
}

func queryAlarms(db *DB, query string, args ...interface{}) ([]Alarm, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying alarms")
	}
	defer rows.Close()

	var ret []Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning a row for alarm")
		}

		ret = append(ret, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating alarm rows")
	}

	return ret, nil
}

// GetAlarm retrieves the alarm with the given uuid. The second return value
// indicates whether the alarm was found.
func GetAlarm(db *DB, userUUID, uuid string) (Alarm, bool, error) {
	ret, err := queryAlarms(db, "SELECT "+alarmColumns+" FROM alarms WHERE user_uuid = ? AND uuid = ?", userUUID, uuid)
	if err != nil {
		return Alarm{}, false, err
	}
	if len(ret) == 0 {
		return Alarm{}, false, nil
	}

	return ret[0], true, nil
}

// GetAlarmByPageUUID retrieves the undeleted alarm on the given page, if any
func GetAlarmByPageUUID(db *DB, userUUID, pageUUID string) (Alarm, bool, error) {
	ret, err := queryAlarms(db, "SELECT "+alarmColumns+" FROM alarms WHERE user_uuid = ? AND page_uuid = ? AND deleted = ?",
		userUUID, pageUUID, false)
	if err != nil {
		return Alarm{}, false, err
	}
	if len(ret) == 0 {
		return Alarm{}, false, nil
	}

	return ret[0], true, nil
}

// ListAlarms returns the undeleted alarms of the user with unscheduled alarms
// first, followed by scheduled alarms in ascending order of trigger time.
// The two groups are fetched separately and merged because the ordering
// cannot be expressed as a single predicate here; the observable order is
// what matters.
func ListAlarms(db *DB, userUUID string, limit, offset int) ([]Alarm, error) {
	unscheduled, err := queryAlarms(db, `SELECT `+alarmColumns+` FROM alarms
		WHERE user_uuid = ? AND deleted = ? AND next_trigger_at IS NULL ORDER BY uuid ASC`, userUUID, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying unscheduled alarms")
	}

	scheduled, err := queryAlarms(db, `SELECT `+alarmColumns+` FROM alarms
		WHERE user_uuid = ? AND deleted = ? AND next_trigger_at IS NOT NULL
		ORDER BY next_trigger_at ASC, uuid ASC`, userUUID, false)
	if err != nil {
		return nil, errors.Wrap(err, "querying scheduled alarms")
	}

	merged := append(unscheduled, scheduled...)

	if offset >= len(merged) {
		return nil, nil
	}
	merged = merged[offset:]
	if limit > 0 && limit < len(merged) {
		merged = merged[:limit]
	}

	return merged, nil
}

// PageResolution is the outcome of resolving an alarm's page reference.
// A reference is dangling when the target page no longer exists in the
// local replica.
type PageResolution struct {
	PageUUID string
	Resolved bool
	Page     Page
}

// ResolvePageRef looks up the page referenced by an alarm
func ResolvePageRef(db *DB, userUUID, pageUUID string) (PageResolution, error) {
	page, ok, err := GetPage(db, userUUID, pageUUID)
	if err != nil {
		return PageResolution{}, errors.Wrapf(err, "looking up page %s", pageUUID)
	}
	if !ok || page.Deleted {
		return PageResolution{PageUUID: pageUUID, Resolved: false}, nil
	}

	return PageResolution{PageUUID: pageUUID, Resolved: true, Page: page}, nil
}

// ReminderItem combines an alarm with a summary of its page
type ReminderItem struct {
	Alarm     Alarm
	PageTitle string
	PageBody  string
	PageKind  string
}

// ListReminders returns the user's reminders joined with their page summaries.
// The page of each alarm is looked up one by one; an alarm whose page is
// missing from the replica is skipped and logged rather than surfaced as an
// error, so a dangling reference never breaks enumeration.
func ListReminders(db *DB, userUUID string, limit, offset int) ([]ReminderItem, error) {
	alarms, err := ListAlarms(db, userUUID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "listing alarms")
	}

	ret := []ReminderItem{}
	for _, alarm := range alarms {
		res, err := ResolvePageRef(db, userUUID, alarm.PageUUID)
		if err != nil {
			return nil, errors.Wrap(err, "resolving page reference")
		}

		if !res.Resolved {
			log.Debug("skipping alarm %s: page %s missing from replica\n", alarm.UUID, alarm.PageUUID)
			continue
		}

		ret = append(ret, ReminderItem{
			Alarm:     alarm,
			PageTitle: res.Page.Title,
			PageBody:  res.Page.Body,
			PageKind:  res.Page.Kind,
		})
	}

	return ret, nil
}

// DeleteAlarmsByPageUUIDs marks deleted all alarms referencing any of the
// given pages and returns the number of alarms affected. Matching zero
// alarms is a valid no-op.
func DeleteAlarmsByPageUUIDs(db *DB, userUUID string, pageUUIDs []string, now int64) (int, error) {
	if len(pageUUIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(pageUUIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, 0, len(pageUUIDs)+4)
	args = append(args, true, true, now, userUUID)
	for _, uuid := range pageUUIDs {
		args = append(args, uuid)
	}

	res, err := db.Exec(`UPDATE alarms SET deleted = ?, dirty = ?, edited_on = ?
		WHERE user_uuid = ? AND deleted = 0 AND page_uuid IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting alarms by page uuids")
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting affected alarms")
	}

	return int(count), nil
}
