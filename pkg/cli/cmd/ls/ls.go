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

package ls

import (
	"strings"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var nameOnly bool

var example = `
 * List all folders
 leaf ls

 * List pages in a folder
 leaf ls recipes
 `

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("Incorrect number of arguments")
	}

	return nil
}

// NewCmd returns a new ls command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls <folder name?>",
		Aliases: []string{"l", "notes"},
		Short:   "List folders and pages",
		Example: example,
		RunE:    NewRun(ctx, false),
		PreRunE: preRun,
	}

	f := cmd.Flags()
	f.BoolVarP(&nameOnly, "name-only", "", false, "print folder names only")

	return cmd
}

// NewRun returns a new run function
func NewRun(ctx context.LeafCtx, nameOnlyArg bool) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if nameOnlyArg {
			nameOnly = nameOnlyArg
		}

		if len(args) == 0 {
			return printFolders(ctx)
		}

		return printPages(ctx, args[0])
	}
}

func printFolders(ctx context.LeafCtx) error {
	folders, err := database.ListFolders(ctx.DB, ctx.UserUUID)
	if err != nil {
		return errors.Wrap(err, "listing folders")
	}

	for _, folder := range folders {
		if nameOnly {
			log.Plainf("%s\n", folder.Name)
			continue
		}

		var countLabel string
		if folder.PageCount == 1 {
			countLabel = "page"
		} else {
			countLabel = "pages"
		}

		log.Plainf("%s %s\n", folder.Name, log.ColorYellow.Sprintf("(%d %s)", folder.PageCount, countLabel))
	}

	return nil
}

// excerpt returns the first line of the body, truncated for display
func excerpt(body string) string {
	line := body
	if idx := strings.Index(body, "\n"); idx != -1 {
		line = body[:idx]
	}

	if len(line) > 50 {
		return line[:50] + "..."
	}

	return line
}

func printPages(ctx context.LeafCtx, folderName string) error {
	db := ctx.DB

	folder, ok, err := database.GetFolderByName(db, ctx.UserUUID, folderName)
	if err != nil {
		return errors.Wrap(err, "finding the folder")
	}
	if !ok {
		return errors.Errorf("folder '%s' not found", folderName)
	}

	log.Infof("on folder %s\n", folder.Name)

	rows, err := db.Query(`SELECT id, title, body FROM pages
		WHERE user_uuid = ? AND folder_uuid = ? AND deleted = ?
		ORDER BY uuid ASC`, ctx.UserUUID, folder.UUID, false)
	if err != nil {
		return errors.Wrap(err, "querying pages")
	}
	defer rows.Close()

	for rows.Next() {
		var rowID int
		var title, body string
		if err := rows.Scan(&rowID, &title, &body); err != nil {
			return errors.Wrap(err, "scanning a row for page")
		}

		label := title
		if label == "" {
			label = excerpt(body)
		}

		log.Plainf("%s %s\n", log.ColorYellow.Sprintf("(%d)", rowID), label)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterating page rows")
	}

	return nil
}
