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

package edit

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/output"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/leafnotes/leaf/pkg/cli/ui"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/leafnotes/leaf/pkg/cli/validate"
	"github.com/pkg/errors"
)

func validateRunPageFlags() error {
	if nameFlag != "" {
		return errors.New("--name is invalid for editing a page")
	}

	return nil
}

// waitEditorContent launches an editor seeded with the current body of the
// page and returns the edited content
func waitEditorContent(ctx context.LeafCtx, body string) (string, error) {
	fpath, err := ui.GetTmpContentPath(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting temporarily content file path")
	}

	if err := os.WriteFile(fpath, []byte(body), 0644); err != nil {
		return "", errors.Wrap(err, "preparing the content file")
	}

	c, err := ui.GetEditorInput(ctx, fpath)
	if err != nil {
		return "", errors.Wrap(err, "getting editor input")
	}

	return c, nil
}

func getPageContent(ctx context.LeafCtx, page database.Page) (string, error) {
	if contentFlag != "" {
		return contentFlag, nil
	}

	// launching an editor is pointless when only metadata is being changed
	if titleFlag != "" || folderFlag != "" {
		return page.Body, nil
	}

	return waitEditorContent(ctx, page.Body)
}

func runPage(ctx context.LeafCtx, target string) error {
	if err := validateRunPageFlags(); err != nil {
		return errors.Wrap(err, "validating flags.")
	}

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

	content, err := getPageContent(ctx, page)
	if err != nil {
		return errors.Wrap(err, "getting content")
	}
	if content == "" {
		return errors.New("Empty content")
	}

	if titleFlag != "" {
		if err := validate.PageTitle(titleFlag); err != nil {
			return errors.Wrap(err, "validating page title")
		}

		page.Title = titleFlag
	}

	ts := time.Now().Unix()

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	if folderFlag != "" {
		folderUUID, err := moveTargetFolder(ctx, tx, folderFlag, ts)
		if err != nil {
			tx.Rollback()
			return errors.Wrap(err, "resolving the target folder")
		}

		page.FolderUUID = sql.NullString{String: folderUUID, Valid: true}
	}

	page.Body = content
	page.EditedOn = ts
	page.Dirty = true

	if err := page.Update(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "updating the page")
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "committing a transaction")
	}

	log.Success("edited the page\n")
	output.PageInfo(page, folderFlag)

	sync.Notify(db, "edit")

	return nil
}

// moveTargetFolder resolves the folder to move a page into, creating it if
// it does not exist yet
func moveTargetFolder(ctx context.LeafCtx, tx *database.DB, name string, ts int64) (string, error) {
	if err := validate.FolderName(name); err != nil {
		return "", errors.Wrap(err, "validating folder name")
	}

	folder, ok, err := database.GetFolderByName(tx, ctx.UserUUID, name)
	if err != nil {
		return "", errors.Wrap(err, "finding the folder")
	}
	if ok {
		if err := database.TouchFolderPageAdded(tx, ctx.UserUUID, folder.UUID, ts); err != nil {
			return "", errors.Wrap(err, "touching the folder")
		}

		return folder.UUID, nil
	}

	uuid, err := utils.GenerateUUID()
	if err != nil {
		return "", errors.Wrap(err, "generating uuid")
	}

	f := database.Folder{
		UUID:            uuid,
		UserUUID:        ctx.UserUUID,
		Name:            name,
		PageCount:       1,
		LastPageAddedOn: ts,
		AddedOn:         ts,
		Dirty:           true,
	}
	if err := f.Insert(tx); err != nil {
		return "", errors.Wrap(err, "creating the folder")
	}

	return uuid, nil
}
