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

package database

import (
	"embed"

	"github.com/leafnotes/leaf/pkg/server/log"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var (
	// MigrationTableName is the name of the table that keeps track of migrations
	MigrationTableName = "migrations"
)

// migrationDialect maps a gorm dialector name to a sql-migrate dialect
func migrationDialect(db *gorm.DB) (string, error) {
	switch name := db.Dialector.Name(); name {
	case "sqlite":
		return "sqlite3", nil
	case "postgres":
		return "postgres", nil
	default:
		return "", errors.Errorf("unsupported dialect %s", name)
	}
}

// Migrate applies pending SQL migrations from the embedded filesystem.
// Migrations cover what AutoMigrate cannot express, such as composite
// indexes and data backfills.
func Migrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "getting sql database handle")
	}

	dialect, err := migrationDialect(db)
	if err != nil {
		return err
	}

	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}

	migrate.SetTable(MigrationTableName)

	n, err := migrate.Exec(sqlDB, dialect, source, migrate.Up)
	if err != nil {
		return errors.Wrap(err, "applying migrations")
	}

	log.WithFields(log.Fields{
		"applied": n,
		"dialect": dialect,
	}).Info("Database migrated.")

	return nil
}
