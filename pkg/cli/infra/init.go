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

// Package infra provides operations and definitions for the
// local infrastructure for Leaf
package infra

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/client"
	"github.com/leafnotes/leaf/pkg/cli/config"
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/migrate"
	"github.com/leafnotes/leaf/pkg/cli/utils"
	"github.com/leafnotes/leaf/pkg/clock"
	"github.com/leafnotes/leaf/pkg/dirs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	// DefaultAPIEndpoint is the default API endpoint used when none is configured
	DefaultAPIEndpoint = "http://localhost:3001/api"
)

// RunEFunc is a function type of leaf commands
type RunEFunc func(*cobra.Command, []string) error

func getDBPath(paths context.Paths, customPath string) string {
	if customPath != "" {
		return customPath
	}

	return fmt.Sprintf("%s/%s/%s", paths.Data, consts.LeafDirName, consts.LeafDBFileName)
}

// newBaseCtx creates a minimal context with paths and database connection.
// This base context is used for file and database initialization before
// being enriched with config values by setupCtx.
func newBaseCtx(versionTag, customDBPath string) (context.LeafCtx, error) {
	paths := context.Paths{
		Home:   dirs.Home,
		Config: dirs.ConfigHome,
		Data:   dirs.DataHome,
		Cache:  dirs.CacheHome,
	}

	dbPath := getDBPath(paths, customDBPath)

	db, err := database.Open(dbPath)
	if err != nil {
		return context.LeafCtx{}, errors.Wrap(err, "connecting to db")
	}

	ctx := context.LeafCtx{
		Paths:   paths,
		Version: versionTag,
		DB:      db,
	}

	return ctx, nil
}

// Init initializes the Leaf environment and returns a new leaf context
// apiEndpoint is used when creating a new config file (e.g., from ldflags during tests)
func Init(versionTag, apiEndpoint, dbPath string) (*context.LeafCtx, error) {
	ctx, err := newBaseCtx(versionTag, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing a context")
	}

	if err := initFiles(ctx, apiEndpoint); err != nil {
		return nil, errors.Wrap(err, "initializing files")
	}

	if err := InitDB(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing database")
	}
	if err := InitSystem(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing system data")
	}

	if err := migrate.Validate(ctx, migrate.LocalMode); err != nil {
		return nil, errors.Wrap(err, "validating schema version")
	}
	if err := migrate.Run(ctx, migrate.LocalSequence, migrate.LocalMode); err != nil {
		return nil, errors.Wrap(err, "running migration")
	}

	ctx, err = setupCtx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "setting up the context")
	}

	log.Debug("context: %+v\n", context.Redact(ctx))

	return &ctx, nil
}

// setupCtx enriches the base context with values from config file and database.
// This is called after files and database have been initialized.
func setupCtx(ctx context.LeafCtx) (context.LeafCtx, error) {
	db := ctx.DB

	var sessionKey, userUUID string
	var sessionKeyExpiry int64

	err := db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKey).Scan(&sessionKey)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key")
	}
	err = db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemSessionKeyExpiry).Scan(&sessionKeyExpiry)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding session key expiry")
	}
	err = db.QueryRow("SELECT value FROM system WHERE key = ?", consts.SystemUserUUID).Scan(&userUUID)
	if err != nil && err != sql.ErrNoRows {
		return ctx, errors.Wrap(err, "finding user uuid")
	}

	cf, err := config.Read(ctx)
	if err != nil {
		return ctx, errors.Wrap(err, "reading config")
	}

	ret := context.LeafCtx{
		Paths:              ctx.Paths,
		Version:            ctx.Version,
		DB:                 ctx.DB,
		SessionKey:         sessionKey,
		SessionKeyExpiry:   sessionKeyExpiry,
		UserUUID:           userUUID,
		APIEndpoint:        cf.APIEndpoint,
		Editor:             cf.Editor,
		Locale:             cf.Locale,
		Clock:              clock.New(),
		EnableUpgradeCheck: cf.EnableUpgradeCheck,
		HTTPClient:         client.NewRateLimitedHTTPClient(),
	}

	return ret, nil
}

// InitDB initializes the database with the base schema. Later schema changes
// are applied by the migration sequence on top of this.
func InitDB(ctx context.LeafCtx) error {
	log.Debug("initializing the database\n")

	db := ctx.DB

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS pages
		(
			id integer PRIMARY KEY AUTOINCREMENT,
			uuid text NOT NULL,
			user_uuid text NOT NULL,
			folder_uuid text,
			title text NOT NULL DEFAULT '',
			body text NOT NULL DEFAULT '',
			public bool NOT NULL DEFAULT false,
			parent_count integer NOT NULL DEFAULT 0,
			child_count integer NOT NULL DEFAULT 0,
			added_on integer NOT NULL,
			edited_on integer NOT NULL DEFAULT 0,
			usn integer NOT NULL DEFAULT 0,
			deleted bool NOT NULL DEFAULT false,
			dirty bool NOT NULL DEFAULT false
		)`)
	if err != nil {
		return errors.Wrap(err, "creating pages table")
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS folders
		(
			uuid text PRIMARY KEY,
			user_uuid text NOT NULL,
			name text NOT NULL,
			description text,
			thumbnail_uri text,
			page_count integer NOT NULL DEFAULT 0,
			added_on integer NOT NULL,
			edited_on integer NOT NULL DEFAULT 0,
			usn integer NOT NULL DEFAULT 0,
			deleted bool NOT NULL DEFAULT false,
			dirty bool NOT NULL DEFAULT false
		)`)
	if err != nil {
		return errors.Wrap(err, "creating folders table")
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS alarms
		(
			uuid text PRIMARY KEY,
			user_uuid text NOT NULL,
			page_uuid text NOT NULL,
			next_trigger_at integer,
			sent_count integer NOT NULL DEFAULT 0,
			added_on integer NOT NULL,
			edited_on integer NOT NULL DEFAULT 0,
			usn integer NOT NULL DEFAULT 0,
			deleted bool NOT NULL DEFAULT false,
			dirty bool NOT NULL DEFAULT false
		)`)
	if err != nil {
		return errors.Wrap(err, "creating alarms table")
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS system
		(
			key string NOT NULL,
			value text NOT NULL
		)`)
	if err != nil {
		return errors.Wrap(err, "creating system table")
	}

	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_uuid ON pages(uuid);
		CREATE INDEX IF NOT EXISTS idx_pages_folder_uuid ON pages(folder_uuid);
		CREATE INDEX IF NOT EXISTS idx_pages_user_uuid ON pages(user_uuid);
		CREATE INDEX IF NOT EXISTS idx_folders_user_uuid ON folders(user_uuid);
		CREATE INDEX IF NOT EXISTS idx_alarms_page_uuid ON alarms(page_uuid);
		CREATE INDEX IF NOT EXISTS idx_alarms_user_uuid ON alarms(user_uuid);
		CREATE INDEX IF NOT EXISTS idx_alarms_next_trigger_at ON alarms(next_trigger_at);`)
	if err != nil {
		return errors.Wrap(err, "creating indices")
	}

	return nil
}

func initSystemKV(db *database.DB, key string, val string) error {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM system WHERE key = ?", key).Scan(&count); err != nil {
		return errors.Wrapf(err, "counting %s", key)
	}

	if count > 0 {
		return nil
	}

	if _, err := db.Exec("INSERT INTO system (key, value) VALUES (?, ?)", key, val); err != nil {
		db.Rollback()
		return errors.Wrapf(err, "inserting %s %s", key, val)
	}

	return nil
}

// InitSystem inserts system data if missing
func InitSystem(ctx context.LeafCtx) error {
	log.Debug("initializing the system\n")

	db := ctx.DB

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "beginning a transaction")
	}

	nowStr := strconv.FormatInt(time.Now().Unix(), 10)
	initialValues := []struct {
		key string
		val string
	}{
		{consts.SystemLastUpgrade, nowStr},
		{consts.SystemLastMaxUSN, "0"},
		{consts.SystemLastSyncAt, "0"},
		{consts.SystemSchema, "1"},
		{consts.SystemRemoteSchema, "1"},
		{consts.SystemSyncPending, "0"},
		{consts.SystemSyncPendingTag, ""},
	}

	for _, kv := range initialValues {
		if err := initSystemKV(tx, kv.key, kv.val); err != nil {
			return errors.Wrapf(err, "initializing system config for %s", kv.key)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	return nil
}

// getEditorCommand returns the system's editor command with appropriate flags,
// if necessary, to make the command wait until editor is close to exit.
func getEditorCommand() string {
	editor := os.Getenv("EDITOR")

	var ret string

	switch editor {
	case "atom":
		ret = "atom -w"
	case "subl":
		ret = "subl -n -w"
	case "code":
		ret = "code -n -w"
	case "mate":
		ret = "mate -w"
	case "vim":
		ret = "vim"
	case "nano":
		ret = "nano"
	case "emacs":
		ret = "emacs"
	case "nvim":
		ret = "nvim"
	default:
		ret = "vi"
	}

	return ret
}

// initConfigFile populates a new config file if it does not exist yet
func initConfigFile(ctx context.LeafCtx, apiEndpoint string) error {
	path := config.GetPath(ctx)
	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking if config exists")
	}
	if ok {
		return nil
	}

	editor := getEditorCommand()

	endpoint := apiEndpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}

	cf := config.Config{
		Editor:             editor,
		APIEndpoint:        endpoint,
		EnableUpgradeCheck: true,
		Locale:             "en",
	}

	if err := config.Write(ctx, cf); err != nil {
		return errors.Wrap(err, "writing config")
	}

	return nil
}

// initFiles creates, if necessary, the leaf directories and files inside
func initFiles(ctx context.LeafCtx, apiEndpoint string) error {
	if err := context.InitLeafDirs(ctx.Paths); err != nil {
		return errors.Wrap(err, "creating the leaf dir")
	}
	if err := initConfigFile(ctx, apiEndpoint); err != nil {
		return errors.Wrap(err, "generating the config file")
	}

	return nil
}
