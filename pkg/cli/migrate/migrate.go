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

// Package migrate evolves the local database schema. Each migration bumps the
// schema version by exactly one, so the stored version and the length of the
// sequence are always in lockstep.
package migrate

import (
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

// Mode decides which schema version a migration sequence is tracked against
type Mode int

const (
	// LocalMode is for migrations that touch only the local database
	LocalMode Mode = iota
	// RemoteMode is for migrations that reconcile the replica with a
	// breaking change on the server side
	RemoteMode
)

// baseSchemaVersion is the schema version of a freshly initialized database,
// before any migration has run
const baseSchemaVersion = 1

type migration struct {
	name string
	run  func(ctx context.LeafCtx, tx *database.DB) error
}

// LocalSequence is a list of local migrations to be run
var LocalSequence = []migration{
	lm1,
	lm2,
	lm3,
}

// RemoteSequence is a list of remote migrations to be run
var RemoteSequence = []migration{
	rm1,
}

func getSchemaKey(mode Mode) (string, error) {
	if mode == LocalMode {
		return consts.SystemSchema, nil
	}
	if mode == RemoteMode {
		return consts.SystemRemoteSchema, nil
	}

	return "", errors.Errorf("unsupported migration type %d", mode)
}

func getSchema(db *database.DB, schemaKey string) (int, error) {
	var ret int
	if err := database.GetSystem(db, schemaKey, &ret); err != nil {
		return 0, errors.Wrap(err, "querying schema")
	}

	return ret, nil
}

// Validate asserts that the stored schema version is consistent with the
// migration sequence: every version above the base must be paired with
// exactly one migration. A version outside that range means the database
// was touched by a different release, and continuing would corrupt it.
func Validate(ctx context.LeafCtx, mode Mode) error {
	sequence, err := getSequence(mode)
	if err != nil {
		return err
	}
	schemaKey, err := getSchemaKey(mode)
	if err != nil {
		return err
	}

	schema, err := getSchema(ctx.DB, schemaKey)
	if err != nil {
		return errors.Wrap(err, "getting schema")
	}

	maxSchema := baseSchemaVersion + len(sequence)
	if schema < baseSchemaVersion || schema > maxSchema {
		return errors.Errorf("schema version %d is not pairable with the migration sequence: expected between %d and %d",
			schema, baseSchemaVersion, maxSchema)
	}

	return nil
}

func getSequence(mode Mode) ([]migration, error) {
	if mode == LocalMode {
		return LocalSequence, nil
	}
	if mode == RemoteMode {
		return RemoteSequence, nil
	}

	return nil, errors.Errorf("unsupported migration type %d", mode)
}

// Run performs the given migration sequence, starting from the step after the
// stored schema version. Each step runs in its own transaction and bumps the
// version by one, so a failure leaves the database resumable.
func Run(ctx context.LeafCtx, sequence []migration, mode Mode) error {
	schemaKey, err := getSchemaKey(mode)
	if err != nil {
		return err
	}

	schema, err := getSchema(ctx.DB, schemaKey)
	if err != nil {
		return errors.Wrap(err, "getting schema")
	}

	log.Debug("current schema for %s: %d\n", schemaKey, schema)

	toRun := sequence[schema-baseSchemaVersion:]

	for _, m := range toRun {
		log.Debug("running migration %s\n", m.name)

		tx, err := ctx.DB.Begin()
		if err != nil {
			return errors.Wrapf(err, "beginning a transaction for %s", m.name)
		}

		if err := m.run(ctx, tx); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "running migration %s", m.name)
		}

		schema++
		if err := database.UpdateSystem(tx, schemaKey, schema); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "updating schema version to %d", schema)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "committing migration %s", m.name)
		}
	}

	return nil
}
