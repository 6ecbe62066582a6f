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
	"database/sql"
	"strings"

	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	conflictMarkerLocal   = "<<<<<<< Local"
	conflictMarkerDivider = "======="
	conflictMarkerServer  = ">>>>>>> Server"
)

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

func writeConflictBlock(sb *strings.Builder, localLines, serverLines []string) {
	sb.WriteString(conflictMarkerLocal)
	sb.WriteString("\n")
	for _, line := range localLines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(conflictMarkerDivider)
	sb.WriteString("\n")
	for _, line := range serverLines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(conflictMarkerServer)
	sb.WriteString("\n")
}

func writeConflict(sb *strings.Builder, local, server string) {
	localLines := splitLines(local)
	serverLines := splitLines(server)

	// pair changed lines one to one so that each changed line gets its own
	// conflict block. When the sides have a different number of lines the
	// pairing is ambiguous, so fall back to a single block.
	if len(localLines) == len(serverLines) {
		for i := range localLines {
			writeConflictBlock(sb, localLines[i:i+1], serverLines[i:i+1])
		}

		return
	}

	writeConflictBlock(sb, localLines, serverLines)
}

// reportBodyConflict renders the local and the server version of a body into
// a single body with line-level conflict markers
func reportBodyConflict(local, server string) string {
	if local == server {
		return local
	}

	dmp := diffmatchpatch.New()
	localChars, serverChars, lineArray := dmp.DiffLinesToChars(local, server)
	diffs := dmp.DiffMain(localChars, serverChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	var pendingLocal string

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			if pendingLocal != "" {
				writeConflict(&sb, pendingLocal, "")
				pendingLocal = ""
			}
			sb.WriteString(diff.Text)
		case diffmatchpatch.DiffDelete:
			pendingLocal = diff.Text
		case diffmatchpatch.DiffInsert:
			writeConflict(&sb, pendingLocal, diff.Text)
			pendingLocal = ""
		}
	}

	if pendingLocal != "" {
		writeConflict(&sb, pendingLocal, "")
	}

	return sb.String()
}

// mergeResult is the outcome of reconciling a dirty local page with its
// server counterpart
type mergeResult struct {
	folderUUID sql.NullString
	title      string
	body       string
	kind       string
	editedOn   int64
	dirty      bool
}

// mergePageFields reconciles the fields of a page that was edited both
// locally and on the server. Scalar fields take the server value. The body is
// merged with conflict markers and the page stays dirty so that the merged
// body is uploaded on the next send.
func mergePageFields(local database.Page, server client.SyncFragPage) mergeResult {
	if !local.Dirty {
		var folderUUID sql.NullString
		if server.FolderUUID != nil {
			folderUUID = sql.NullString{String: *server.FolderUUID, Valid: true}
		}

		return mergeResult{
			folderUUID: folderUUID,
			title:      server.Title,
			body:       server.Body,
			kind:       server.Kind,
			editedOn:   server.EditedOn,
			dirty:      false,
		}
	}

	body := reportBodyConflict(local.Body, server.Body)
	stillDirty := body != server.Body

	var folderUUID sql.NullString
	if server.FolderUUID != nil {
		folderUUID = sql.NullString{String: *server.FolderUUID, Valid: true}
	}

	title := server.Title
	if local.Title != server.Title && local.Title != "" {
		// titles are too short for a line merge. Keep the local title and
		// stay dirty so it is uploaded.
		title = local.Title
		stillDirty = true
	}

	return mergeResult{
		folderUUID: folderUUID,
		title:      title,
		body:       body,
		kind:       server.Kind,
		editedOn:   server.EditedOn,
		dirty:      stillDirty,
	}
}
