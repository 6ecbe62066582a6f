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

package remind

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/output"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var atFlag string
var clearFlag bool
var removeFlag bool
var limitFlag int
var offsetFlag int

var example = `
 * List reminders, unscheduled ones first
 leaf remind

 * Set a reminder on the page with id 3
 leaf remind 3 --at "2026-09-01T09:00:00Z"

 * Unschedule a reminder, keeping it on the page
 leaf remind 3 --clear

 * Remove a reminder from a page
 leaf remind 3 --remove`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("Incorrect number of arguments")
	}

	return nil
}

// NewCmd returns a new remind command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remind <page id?>",
		Short:   "List and manage reminders",
		Aliases: []string{"r"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&atFlag, "at", "", "the trigger time, as RFC3339 or epoch seconds")
	f.BoolVar(&clearFlag, "clear", false, "unschedule the reminder but keep it")
	f.BoolVar(&removeFlag, "remove", false, "remove the reminder")
	f.IntVar(&limitFlag, "limit", 0, "the maximum number of reminders to list")
	f.IntVar(&offsetFlag, "offset", 0, "the number of reminders to skip")

	return cmd
}

func newRun(ctx context.LeafCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listReminders(ctx)
		}

		return managePage(ctx, args[0])
	}
}

func listReminders(ctx context.LeafCtx) error {
	items, err := database.ListReminders(ctx.DB, ctx.UserUUID, limitFlag, offsetFlag)
	if err != nil {
		return errors.Wrap(err, "listing reminders")
	}

	if len(items) == 0 {
		log.Plain("no reminders\n")
		return nil
	}

	for _, item := range items {
		output.ReminderLine(item)
	}

	return nil
}

// parseTriggerTime accepts epoch seconds or an RFC3339 timestamp
func parseTriggerTime(s string) (int64, error) {
	if utils.IsNumber(s) {
		return strconv.ParseInt(s, 10, 64)
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing time %s", s)
	}

	return t.Unix(), nil
}

func managePage(ctx context.LeafCtx, target string) error {
	pageRowID, err := strconv.Atoi(target)
	if err != nil {
		return errors.Wrap(err, "invalid page id")
	}

	db := ctx.DB
	page, ok, err := database.GetPageByRowID(db, ctx.UserUUID, pageRowID)
	if err != nil {
		return errors.Wrap(err, "getting the page")
	}
	if !ok {
		return errors.Errorf("page %d not found", pageRowID)
	}

	switch {
	case removeFlag:
		return removeReminder(ctx, page)
	case clearFlag:
		return clearReminder(ctx, page)
	case atFlag != "":
		triggerAt, err := parseTriggerTime(atFlag)
		if err != nil {
			return errors.Wrap(err, "invalid trigger time")
		}

		return scheduleReminder(ctx, page, triggerAt)
	default:
		return showReminder(ctx, page)
	}
}

func showReminder(ctx context.LeafCtx, page database.Page) error {
	alarm, ok, err := database.GetAlarmByPageUUID(ctx.DB, ctx.UserUUID, page.UUID)
	if err != nil {
		return errors.Wrap(err, "getting the reminder")
	}
	if !ok {
		log.Plain("no reminder on this page\n")
		return nil
	}

	output.ReminderLine(database.ReminderItem{
		Alarm:     alarm,
		PageTitle: page.Title,
		PageBody:  page.Body,
		PageKind:  page.Kind,
	})

	return nil
}

func scheduleReminder(ctx context.LeafCtx, page database.Page, triggerAt int64) error {
	db := ctx.DB
	ts := time.Now().Unix()

	alarm, ok, err := database.GetAlarmByPageUUID(db, ctx.UserUUID, page.UUID)
	if err != nil {
		return errors.Wrap(err, "getting the reminder")
	}

	if ok {
		alarm.NextTriggerAt = sql.NullInt64{Int64: triggerAt, Valid: true}
		alarm.EditedOn = ts
		alarm.Dirty = true

		if err := alarm.Update(db); err != nil {
			return errors.Wrap(err, "updating the reminder")
		}
	} else {
		uuid, err := utils.GenerateUUID()
		if err != nil {
			return errors.Wrap(err, "generating uuid")
		}

		a := database.Alarm{
			UUID:          uuid,
			UserUUID:      ctx.UserUUID,
			PageUUID:      page.UUID,
			NextTriggerAt: sql.NullInt64{Int64: triggerAt, Valid: true},
			AddedOn:       ts,
			Dirty:         true,
		}
		if err := a.Insert(db); err != nil {
			return errors.Wrap(err, "creating the reminder")
		}
	}

	log.Successf("reminder set for %s\n", time.Unix(triggerAt, 0).Format("Jan 2, 2006 3:04pm (MST)"))

	sync.Notify(db, "remind")

	return nil
}

func clearReminder(ctx context.LeafCtx, page database.Page) error {
	db := ctx.DB

	alarm, ok, err := database.GetAlarmByPageUUID(db, ctx.UserUUID, page.UUID)
	if err != nil {
		return errors.Wrap(err, "getting the reminder")
	}
	if !ok {
		log.Plain("no reminder on this page\n")
		return nil
	}

	alarm.NextTriggerAt = sql.NullInt64{}
	alarm.EditedOn = time.Now().Unix()
	alarm.Dirty = true

	if err := alarm.Update(db); err != nil {
		return errors.Wrap(err, "updating the reminder")
	}

	log.Success("reminder unscheduled\n")

	sync.Notify(db, "remind")

	return nil
}

func removeReminder(ctx context.LeafCtx, page database.Page) error {
	db := ctx.DB

	count, err := sync.DeleteAlarmsForPages(db, ctx.UserUUID, []string{page.UUID}, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "removing the reminder")
	}
	if count == 0 {
		log.Plain("no reminder on this page\n")
		return nil
	}

	log.Success("reminder removed\n")

	return nil
}
