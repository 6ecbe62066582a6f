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

package sync

import (
	"fmt"
	"testing"

	"github.com/leafnotes/leaf/pkg/assert"
	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/database"
)

func TestReportBodyConflict(t *testing.T) {
	testCases := []struct {
		local    string
		server   string
		expected string
	}{
		{
			local:    "\n",
			server:   "\n",
			expected: "\n",
		},
		{
			local:    "",
			server:   "",
			expected: "",
		},
		{
			local:    "foo",
			server:   "foo",
			expected: "foo",
		},
		{
			local:    "foo\nbar",
			server:   "foo\nbar",
			expected: "foo\nbar",
		},
		{
			local:  "foo-local",
			server: "foo-server",
			expected: `<<<<<<< Local
foo-local
=======
foo-server
>>>>>>> Server
`,
		},
		{
			local:  "foo\n",
			server: "bar\n",
			expected: `<<<<<<< Local
foo
=======
bar
>>>>>>> Server
`,
		},
		{
			local:  "foo\n",
			server: "\n",
			expected: `<<<<<<< Local
foo
=======

>>>>>>> Server
`,
		},

		{
			local:  "\n",
			server: "foo\n",
			expected: `<<<<<<< Local

=======
foo
>>>>>>> Server
`,
		},
		{
			local:  "foo\n\nquz\nbaz\n",
			server: "foo\n\nbar\nbaz\n",
			expected: `foo

<<<<<<< Local
quz
=======
bar
>>>>>>> Server
baz
`,
		},
		{
			local:  "foo\n\nquz\nbaz\n\nqux quz\nfuz\n",
			server: "foo\n\nbar\nbaz\n\nqux quz\nfuuz\n",
			expected: `foo

<<<<<<< Local
quz
=======
bar
>>>>>>> Server
baz

qux quz
<<<<<<< Local
fuz
=======
fuuz
>>>>>>> Server
`,
		},
		{
			local:  "foo\nquz\nbaz\nbar\n",
			server: "foo\nquzz\nbazz\nbar\n",
			expected: `foo
<<<<<<< Local
quz
=======
quzz
>>>>>>> Server
<<<<<<< Local
baz
=======
bazz
>>>>>>> Server
bar
`,
		},
	}

	for idx, tc := range testCases {
		result := reportBodyConflict(tc.local, tc.server)

		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			assert.DeepEqual(t, result, tc.expected, "result mismatch")
		})
	}
}

func TestMergePageFields_CleanLocal(t *testing.T) {
	local := database.Page{
		Title: "local title",
		Body:  "local body\n",
		Kind:  "text",
		Dirty: false,
	}
	folderUUID := "f1"
	server := client.SyncFragPage{
		FolderUUID: &folderUUID,
		Title:      "server title",
		Body:       "server body\n",
		Kind:       "text",
		EditedOn:   1600000000,
	}

	mr := mergePageFields(local, server)

	// server wins wholesale when the local copy has no unsynced edits
	assert.Equal(t, mr.title, "server title", "title mismatch")
	assert.Equal(t, mr.body, "server body\n", "body mismatch")
	assert.Equal(t, mr.folderUUID.String, "f1", "folder uuid mismatch")
	assert.Equal(t, mr.editedOn, int64(1600000000), "edited_on mismatch")
	assert.Equal(t, mr.dirty, false, "dirty mismatch")
}

func TestMergePageFields_DirtyLocal(t *testing.T) {
	local := database.Page{
		Title: "shared title",
		Body:  "shared\nlocal line\n",
		Kind:  "text",
		Dirty: true,
	}
	server := client.SyncFragPage{
		Title:    "shared title",
		Body:     "shared\nserver line\n",
		Kind:     "text",
		EditedOn: 1600000000,
	}

	mr := mergePageFields(local, server)

	expected := `shared
<<<<<<< Local
local line
=======
server line
>>>>>>> Server
`
	assert.DeepEqual(t, mr.body, expected, "body mismatch")
	assert.Equal(t, mr.dirty, true, "merged page should stay dirty for re-upload")
}

func TestMergePageFields_DirtyLocalSameBody(t *testing.T) {
	local := database.Page{
		Title: "shared title",
		Body:  "same body\n",
		Kind:  "text",
		Dirty: true,
	}
	server := client.SyncFragPage{
		Title:    "shared title",
		Body:     "same body\n",
		Kind:     "text",
		EditedOn: 1600000000,
	}

	mr := mergePageFields(local, server)

	assert.Equal(t, mr.body, "same body\n", "body mismatch")
	assert.Equal(t, mr.dirty, false, "identical bodies need no re-upload")
}

func TestMergePageFields_DirtyLocalTitle(t *testing.T) {
	local := database.Page{
		Title: "local title",
		Body:  "same body\n",
		Kind:  "text",
		Dirty: true,
	}
	server := client.SyncFragPage{
		Title:    "server title",
		Body:     "same body\n",
		Kind:     "text",
		EditedOn: 1600000000,
	}

	mr := mergePageFields(local, server)

	assert.Equal(t, mr.title, "local title", "local title edit should win")
	assert.Equal(t, mr.dirty, true, "kept local title needs re-upload")
}
