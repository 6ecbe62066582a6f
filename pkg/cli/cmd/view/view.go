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

package view

import (
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/leafnotes/leaf/pkg/cli/cmd/cat"
	"github.com/leafnotes/leaf/pkg/cli/cmd/ls"
	"github.com/leafnotes/leaf/pkg/cli/utils"
)

var example = `
 * View all folders
 leaf view

 * List pages in a folder
 leaf view recipes

 * View a particular page
 leaf view 12
 `

var nameOnly bool
var contentOnly bool

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new view command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "view <folder name|page id?>",
		Aliases: []string{"v"},
		Short:   "List folders, pages or view a content",
		Example: example,
		RunE:    newRun(ctx),
		PreRunE: preRun,
	}

	f := cmd.Flags()
	f.BoolVarP(&nameOnly, "name-only", "", false, "print folder names only")
	f.BoolVarP(&contentOnly, "content-only", "", false, "print the page content only")

	return cmd
}

func newRun(ctx context.LeafCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		var run infra.RunEFunc

		if len(args) == 0 {
			run = ls.NewRun(ctx, nameOnly)
		} else if len(args) == 1 {
			if nameOnly {
				return errors.New("--name-only flag is only valid when viewing folders")
			}

			if utils.IsNumber(args[0]) {
				run = cat.NewRun(ctx, contentOnly)
			} else {
				run = ls.NewRun(ctx, false)
			}
		} else {
			return errors.New("Incorrect number of arguments")
		}

		return run(cmd, args)
	}
}
