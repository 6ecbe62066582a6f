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

package validate

import (
	"strings"

	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/pkg/errors"
)

var reservedFolderNames = []string{"trash", "conflicts"}

// ErrFolderNameReserved is an error indicating that the specified folder name is reserved
var ErrFolderNameReserved = errors.New("The folder name is reserved")

// ErrFolderNameNumeric is an error for a folder name that only contains numbers
var ErrFolderNameNumeric = errors.New("The folder name cannot contain only numbers")

// ErrFolderNameEmpty is an error for an empty folder name
var ErrFolderNameEmpty = errors.New("The folder name is empty")

// ErrFolderNameMultiline is an error for a folder name that has linebreaks
var ErrFolderNameMultiline = errors.New("The folder name contains multiple lines")

// ErrPageTitleMultiline is an error for a page title that has linebreaks
var ErrPageTitleMultiline = errors.New("The page title contains multiple lines")

func isReservedName(name string) bool {
	for _, n := range reservedFolderNames {
		if name == n {
			return true
		}
	}

	return false
}

// FolderName validates a folder name
func FolderName(name string) error {
	if name == "" {
		return ErrFolderNameEmpty
	}

	if isReservedName(name) {
		return ErrFolderNameReserved
	}

	if utils.IsNumber(name) {
		return ErrFolderNameNumeric
	}

	if strings.Contains(name, "\n") || strings.Contains(name, "\r\n") {
		return ErrFolderNameMultiline
	}

	return nil
}

// PageTitle validates a page title. An empty title is allowed.
func PageTitle(title string) error {
	if strings.Contains(title, "\n") || strings.Contains(title, "\r\n") {
		return ErrPageTitleMultiline
	}

	return nil
}
