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

package add

import (
	"database/sql"
	"os"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/output"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/leafnotes/leaf/pkg/cli/ui"
	"github.com/leafnotes/leaf/pkg/cli/upgrade"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/leafnotes/leaf/pkg/cli/validate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var contentFlag string
var titleFlag string

var example = `
 * Open an editor to write content
 leaf add

 * Add a page to a folder
 leaf add recipes

 * Skip the editor by providing content directly
 leaf add recipes -c "fold in dry ingredients last" -t "muffins"

 * Send stdin content to a page
 echo "call the dentist" | leaf add`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new add command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <folder?>",
		Short:   "Add a new page",
		Aliases: []string{"a", "n", "new"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "The content for the page")
	f.StringVarP(&titleFlag, "title", "t", "", "The title for the page")

	return cmd
}

func getContent(ctx context.LeafCtx) (string, error) {
	if contentFlag != "" {
		return contentFlag, nil
	}

	// check for piped content
	fInfo, _ := os.Stdin.Stat()
	if fInfo.Mode()&os.ModeCharDevice == 0 {
		c, err := ui.ReadStdInput()
		if err != nil {
			return "", errors.Wrap(err, "Failed to get piped input")
		}
		return c, nil
	}

	fpath, err := ui.GetTmpContentPath(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting temporarily content file path")
	}

	c, err := ui.GetEditorInput(ctx, fpath)
	if err != nil {
		return "", errors.Wrap(err, "Failed to get editor input")
	}

	return c, nil
}

func newRun(ctx context.LeafCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		var folderName string
		if len(args) == 1 {
			folderName = args[0]
			if err := validate.FolderName(folderName); err != nil {
				return errors.Wrap(err, "invalid folder name")
			}
		}

		if err := validate.PageTitle(titleFlag); err != nil {
			return errors.Wrap(err, "invalid page title")
		}

		content, err := getContent(ctx)
		if err != nil {
			return errors.Wrap(err, "getting content")
		}
		if content == "" {
			return errors.New("Empty content")
		}

		ts := time.Now().Unix()
		pageRowID, err := writePage(ctx, folderName, titleFlag, content, ts)
		if err != nil {
			return errors.Wrap(err, "Failed to write page")
		}

		if folderName == "" {
			log.Success("added a page\n")
		} else {
			log.Successf("added to %s\n", folderName)
		}

		db := ctx.DB
		page, ok, err := database.GetPageByRowID(db, ctx.UserUUID, pageRowID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("page %d not found after insert", pageRowID)
		}

		output.PageInfo(page, folderName)

		sync.Notify(db, "add")

		if err := upgrade.Check(ctx); err != nil {
			log.Error(errors.Wrap(err, "automatically checking updates").Error())
		}

		return nil
	}
}

func writePage(ctx context.LeafCtx, folderName, title, content string, ts int64) (int, error) {
	tx, err := ctx.DB.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "beginning a transaction")
	}

	var folderUUID sql.NullString
	if folderName != "" {
		uuid, err := ensureFolder(ctx, tx, folderName, ts)
		if err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, "ensuring the folder")
		}

		folderUUID = sql.NullString{String: uuid, Valid: true}
	}

	pageUUID, err := utils.GeneratePageUUID()
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "generating uuid")
	}

	p := database.Page{
		UUID:       pageUUID,
		UserUUID:   ctx.UserUUID,
		FolderUUID: folderUUID,
		Title:      title,
		Body:       content,
		Kind:       consts.PageKindText,
		AddedOn:    ts,
		Dirty:      true,
	}
	if err := p.Insert(tx); err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "creating the page")
	}

	if folderUUID.Valid {
		if err := database.TouchFolderPageAdded(tx, ctx.UserUUID, folderUUID.String, ts); err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, "touching the folder")
		}
	}

	var pageRowID int
	err = tx.QueryRow(`SELECT pages.id
			FROM pages
			WHERE pages.uuid = ?`, pageUUID).
		Scan(&pageRowID)
	if err != nil {
		tx.Rollback()
		return pageRowID, errors.Wrap(err, "getting the page id")
	}

	err = tx.Commit()
	if err != nil {
		tx.Rollback()
		return pageRowID, errors.Wrap(err, "committing a transaction")
	}

	return pageRowID, nil
}

// ensureFolder finds the folder with the given name, creating it if missing,
// and returns its uuid
func ensureFolder(ctx context.LeafCtx, tx *database.DB, name string, ts int64) (string, error) {
	folder, ok, err := database.GetFolderByName(tx, ctx.UserUUID, name)
	if err != nil {
		return "", errors.Wrap(err, "finding the folder")
	}
	if ok {
		return folder.UUID, nil
	}

	uuid, err := utils.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(err, "generating uuid")
	}

	f := database.Folder{
		UUID:     uuid,
		UserUUID: ctx.UserUUID,
		Name:     name,
		AddedOn:  ts,
		Dirty:    true,
	}
	if err := f.Insert(tx); err != nil {
		return "", errors.Wrap(err, "creating the folder")
	}

	return uuid, nil
}
