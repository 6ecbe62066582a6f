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

// Package consts provides definitions of constants
package consts

var (
	// LeafDirName is the name of the directory containing leaf files
	LeafDirName = "leaf"
	// LeafDBFileName is a filename for the Leaf SQLite database
	LeafDBFileName = "leaf.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "leafrc"
	// DaemonPIDFileName is the name of the pid file of the background daemon
	DaemonPIDFileName = "leafd.pid"
	// TmpContentFileBase is the base for the name of a temporary file holding
	// a page body being composed
	TmpContentFileBase = "LEAF_PAGE"
	// TmpContentFileExt is the extension of a temporary content file
	TmpContentFileExt = "md"

	// PageKindText is the content type tag for a plain text page
	PageKindText = "text"
	// PageKindDrawing is the content type tag for a drawing page
	PageKindDrawing = "drawing"

	// SystemSchema is the key for schema in the system table
	SystemSchema = "schema"
	// SystemRemoteSchema is the key for remote schema in the system table
	SystemRemoteSchema = "remote_schema"
	// SystemLastSyncAt is the timestamp of the server at the last sync
	SystemLastSyncAt = "last_sync_time"
	// SystemLastMaxUSN is the user's max_usn from the server at the last sync
	SystemLastMaxUSN = "last_max_usn"
	// SystemLastUpgrade is the timestamp at which the system most recently checked for an upgrade
	SystemLastUpgrade = "last_upgrade"
	// SystemSessionKey is the session key
	SystemSessionKey = "session_token"
	// SystemSessionKeyExpiry is the timestamp at which the session key will expire
	SystemSessionKeyExpiry = "session_token_expiry"
	// SystemUserUUID is the uuid of the user that owns this replica
	SystemUserUUID = "user_uuid"
	// SystemSyncPending indicates that a local mutation is awaiting reconciliation
	SystemSyncPending = "sync_pending"
	// SystemSyncPendingTag is the call site tag of the last sync trigger, for diagnostics
	SystemSyncPendingTag = "sync_pending_tag"
)
