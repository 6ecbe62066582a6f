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

package cat

import (
	"strconv"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/output"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var example = `
 * See the page with id 2
 leaf cat 2
 `

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of arguments")
	}

	return nil
}

// NewCmd returns a new cat command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cat <page id>",
		Aliases: []string{"c"},
		Short:   "See a page",
		Example: example,
		RunE:    NewRun(ctx, false),
		PreRunE: preRun,
	}

	return cmd
}

// NewRun returns a new run function
func NewRun(ctx context.LeafCtx, contentOnly bool) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		pageRowID, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrap(err, "invalid page id")
		}

		db := ctx.DB
		page, ok, err := database.GetPageByRowID(db, ctx.UserUUID, pageRowID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("page %d not found", pageRowID)
		}

		if contentOnly {
			output.PageContent(page)
			return nil
		}

		var folderName string
		if page.FolderUUID.Valid {
			folder, ok, err := database.GetFolder(db, ctx.UserUUID, page.FolderUUID.String)
			if err != nil {
				return errors.Wrap(err, "finding the folder")
			}
			if ok {
				folderName = folder.Name
			}
		}

		output.PageInfo(page, folderName)

		return nil
	}
}
