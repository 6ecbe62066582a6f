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

// Package job provides the background alarm processor
package job

import (
	"time"

	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/database"
	"github.com/leafnotes/leaf/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// NextHourBoundary returns the next top of the hour after the given time.
// Alarm checks run on hour boundaries.
func NextHourBoundary(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}

// Runner runs the background jobs
type Runner struct {
	app *app.App
	// Enabled gates the alarm processor. When off, scheduled checks
	// log the boundary they would have run at and do nothing.
	Enabled bool

	cron *cron.Cron
}

// NewRunner creates a new job runner
func NewRunner(a *app.App, enabled bool) *Runner {
	return &Runner{
		app:     a,
		Enabled: enabled,
	}
}

// Do schedules the background jobs. It returns immediately after
// scheduling; the jobs run on their own goroutines.
func (r *Runner) Do() error {
	if err := r.app.Validate(); err != nil {
		return errors.Wrap(err, "validating app")
	}

	c := cron.New()

	// every hour on the hour
	err := c.AddFunc("0 0 * * * *", func() {
		if err := r.CheckAlarms(); err != nil {
			log.ErrorWrap(err, "checking alarms")
		}
	})
	if err != nil {
		return errors.Wrap(err, "scheduling alarm check")
	}

	c.Start()
	r.cron = c

	log.WithFields(log.Fields{
		"next_boundary": NextHourBoundary(r.app.Clock.Now()).Format(time.RFC3339),
		"enabled":       r.Enabled,
	}).Info("started job runner")

	return nil
}

// Stop stops the scheduled jobs
func (r *Runner) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// CheckAlarms processes all due alarms. When the processor is disabled it
// logs and does nothing.
func (r *Runner) CheckAlarms() error {
	if !r.Enabled {
		log.WithFields(log.Fields{
			"next_boundary": NextHourBoundary(r.app.Clock.Now()).Format(time.RFC3339),
		}).Info("alarm processor is disabled. skipping alarm check.")
		return nil
	}

	alarms, err := r.app.GetDueAlarms()
	if err != nil {
		return errors.Wrap(err, "getting due alarms")
	}

	log.WithFields(log.Fields{
		"count": len(alarms),
	}).Info("processing due alarms")

	for _, alarm := range alarms {
		if err := r.processAlarm(alarm); err != nil {
			log.WithFields(log.Fields{
				"alarm_uuid": alarm.UUID,
			}).ErrorWrap(err, "processing alarm")
		}
	}

	return nil
}

// processAlarm delivers a single due alarm. Delivery is at-least-once: the
// notification id is rotated and persisted before dispatch, so a crash after
// dispatch redelivers with the same id and receivers can deduplicate.
func (r *Runner) processAlarm(alarm database.Alarm) error {
	claimed, err := r.app.ClaimAlarm(&alarm)
	if err != nil {
		return errors.Wrap(err, "claiming alarm")
	}
	if !claimed {
		// another processor holds the claim
		return nil
	}

	nid, err := r.app.RotateAlarmNotificationID(&alarm)
	if err != nil {
		if rerr := r.app.ReleaseAlarmClaim(alarm); rerr != nil {
			log.ErrorWrap(rerr, "releasing alarm claim")
		}
		return errors.Wrap(err, "rotating notification id")
	}

	if err := r.deliver(alarm, nid); err != nil {
		// keep the notification id so that the retry reuses it
		if rerr := r.app.ReleaseAlarmClaim(alarm); rerr != nil {
			log.ErrorWrap(rerr, "releasing alarm claim")
		}
		return errors.Wrap(err, "delivering alarm")
	}

	if err := r.app.MarkAlarmSent(alarm); err != nil {
		return errors.Wrap(err, "finalizing alarm")
	}

	return nil
}

func (r *Runner) deliver(alarm database.Alarm, notificationID string) error {
	var user database.User
	if err := r.app.DB.Where("id = ?", alarm.UserID).First(&user).Error; err != nil {
		return errors.Wrap(err, "finding user")
	}
	if !user.Email.Valid || user.Email.String == "" {
		return errors.New("user has no email")
	}

	var page database.Page
	if err := r.app.DB.Where("uuid = ?", alarm.PageUUID).First(&page).Error; err != nil {
		return errors.Wrap(err, "finding page")
	}

	if err := r.app.SendAlarmEmail(user.Email.String, page.Title, notificationID); err != nil {
		return errors.Wrap(err, "sending alarm email")
	}

	return nil
}
