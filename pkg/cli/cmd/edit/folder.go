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
	"strings"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/output"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/leafnotes/leaf/pkg/cli/ui"
	"github.com/leafnotes/leaf/pkg/cli/validate"
	"github.com/pkg/errors"
)

func validateRunFolderFlags() error {
	if contentFlag != "" {
		return errors.New("--content is invalid for editing a folder")
	}
	if titleFlag != "" {
		return errors.New("--title is invalid for editing a folder")
	}
	if folderFlag != "" {
		return errors.New("--folder is invalid for editing a folder")
	}

	return nil
}

func waitEditorFolderName(ctx context.LeafCtx) (string, error) {
	fpath, err := ui.GetTmpContentPath(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting temporarily content file path")
	}

	c, err := ui.GetEditorInput(ctx, fpath)
	if err != nil {
		return "", errors.Wrap(err, "getting editor input")
	}

	// remove the newline at the end because files end with linebreaks in POSIX
	c = strings.TrimSuffix(c, "\n")
	c = strings.TrimSuffix(c, "\r\n")

	return c, nil
}

func getName(ctx context.LeafCtx) (string, error) {
	if nameFlag != "" {
		return nameFlag, nil
	}

	c, err := waitEditorFolderName(ctx)
	if err != nil {
		return "", errors.Wrap(err, "Failed to get editor input")
	}

	return c, nil
}

func runFolder(ctx context.LeafCtx, folderName string) error {
	err := validateRunFolderFlags()
	if err != nil {
		return errors.Wrap(err, "validating flags.")
	}

	db := ctx.DB
	folder, ok, err := database.GetFolderByName(db, ctx.UserUUID, folderName)
	if err != nil {
		return errors.Wrap(err, "finding the folder")
	}
	if !ok {
		return errors.Errorf("folder '%s' not found", folderName)
	}

	name, err := getName(ctx)
	if err != nil {
		return errors.Wrap(err, "getting name")
	}

	err = validate.FolderName(name)
	if err != nil {
		return errors.Wrap(err, "validating folder name")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	folder.Name = name
	folder.EditedOn = time.Now().Unix()
	folder.Dirty = true

	if err := folder.Update(tx); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "updating the folder name")
	}

	err = tx.Commit()
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "committing a transaction")
	}

	log.Success("edited the folder\n")
	output.FolderInfo(folder)

	sync.Notify(db, "edit")

	return nil
}
