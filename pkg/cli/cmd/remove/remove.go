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

package remove

import (
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/leafnotes/leaf/pkg/cli/ui"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var yesFlag bool

var example = `
  * Remove a page by id
  leaf remove 3

  * Remove a folder, detaching its pages
  leaf remove recipes
`

// NewCmd returns a new remove command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <page id|folder name>",
		Short:   "Remove a page or a folder",
		Aliases: []string{"rm", "d"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.BoolVarP(&yesFlag, "yes", "y", false, "skip the confirmation")

	return cmd
}

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

func newRun(ctx context.LeafCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		target := args[0]

		if utils.IsNumber(target) {
			if err := removePage(ctx, target); err != nil {
				return errors.Wrap(err, "removing page")
			}
		} else {
			if err := removeFolder(ctx, target); err != nil {
				return errors.Wrap(err, "removing folder")
			}
		}

		return nil
	}
}

func confirm(question string) (bool, error) {
	if yesFlag {
		return true, nil
	}

	return ui.Confirm(question, false)
}

func removePage(ctx context.LeafCtx, target string) error {
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

	ok, err = confirm("remove this page?")
	if err != nil {
		return errors.Wrap(err, "getting confirmation")
	}
	if !ok {
		log.Warnf("aborted\n")
		return nil
	}

	ts := time.Now().Unix()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	// the content is cleared eagerly; the tombstone only needs identity
	page.Title = ""
	page.Body = ""
	page.EditedOn = ts
	page.Deleted = true
	page.Dirty = true

	if err := page.Update(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "updating the page")
	}

	if _, err := database.DeleteAlarmsByPageUUIDs(tx, ctx.UserUUID, []string{page.UUID}, ts); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "removing alarms on the page")
	}

	if page.FolderUUID.Valid {
		if _, err := database.RefreshFolderPageCount(tx, ctx.UserUUID, page.FolderUUID.String); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "refreshing folder page count")
		}
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "committing a transaction")
	}

	log.Successf("removed page %d\n", pageRowID)

	sync.Notify(db, "remove")

	return nil
}

// removeFolder removes the folder as a grouping. Pages that belonged to the
// folder are detached, never deleted.
func removeFolder(ctx context.LeafCtx, folderName string) error {
	db := ctx.DB

	folder, ok, err := database.GetFolderByName(db, ctx.UserUUID, folderName)
	if err != nil {
		return errors.Wrap(err, "finding the folder")
	}
	if !ok {
		return errors.Errorf("folder '%s' not found", folderName)
	}

	ok, err = confirm("remove this folder? Its pages will be kept.")
	if err != nil {
		return errors.Wrap(err, "getting confirmation")
	}
	if !ok {
		log.Warnf("aborted\n")
		return nil
	}

	ts := time.Now().Unix()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if _, err := tx.Exec(`UPDATE pages SET folder_uuid = NULL, dirty = ?, edited_on = ?
		WHERE user_uuid = ? AND folder_uuid = ? AND deleted = ?`,
		true, ts, ctx.UserUUID, folder.UUID, false); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "detaching pages")
	}

	folder.EditedOn = ts
	folder.Deleted = true
	folder.Dirty = true

	if err := folder.Update(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "updating the folder")
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "committing a transaction")
	}

	log.Successf("removed folder %s\n", folderName)

	sync.Notify(db, "remove")

	return nil
}
