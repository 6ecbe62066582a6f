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
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var contentFlag string
var titleFlag string
var folderFlag string
var nameFlag string

var example = `
  * Edit a page by id
  leaf edit 3

  * Edit a page without launching an editor
  leaf edit 3 -c "new content"

  * Retitle a page
  leaf edit 3 -t "new title"

  * Move a page to another folder
  leaf edit 3 -f recipes

  * Rename a folder
  leaf edit recipes

  * Rename a folder without launching an editor
  leaf edit recipes -n cooking
`

// NewCmd returns a new edit command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <page id|folder name>",
		Short:   "Edit a page or a folder",
		Aliases: []string{"e"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "a new content for the page")
	f.StringVarP(&titleFlag, "title", "t", "", "a new title for the page")
	f.StringVarP(&folderFlag, "folder", "f", "", "the name of the folder to move the page to")
	f.StringVarP(&nameFlag, "name", "n", "", "a new name for a folder")

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
			if err := runPage(ctx, target); err != nil {
				return errors.Wrap(err, "editing page")
			}
		} else {
			if err := runFolder(ctx, target); err != nil {
				return errors.Wrap(err, "editing folder")
			}
		}

		return nil
	}
}
