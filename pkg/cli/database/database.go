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

// Package database provides the operations and definitions for the
// local replica of the Leaf data
package database

import (
	"database/sql"

	// sqlite3 registers the sqlite3 driver with database/sql
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB is a database connection handle. It dispatches to an open transaction
// if one was begun, and to the underlying connection otherwise, so that
// record operations can be written once and run in either mode.
type DB struct {
	conn *sql.DB
	tx   *sql.Tx
}

// Open opens the connection to the local database
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening the database connection")
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, errors.Wrap(err, "enabling foreign keys")
	}

	return &DB{conn: conn}, nil
}

// Begin starts a transaction and returns a handle scoped to it
func (d *DB) Begin() (*DB, error) {
	if d.tx != nil {
		return nil, errors.New("transaction already in progress")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "beginning a transaction")
	}

	return &DB{conn: d.conn, tx: tx}, nil
}

// Commit commits the transaction of the handle
func (d *DB) Commit() error {
	if d.tx == nil {
		return errors.New("no transaction in progress")
	}

	return d.tx.Commit()
}

// Rollback aborts the transaction of the handle
func (d *DB) Rollback() error {
	if d.tx == nil {
		return errors.New("no transaction in progress")
	}

	return d.tx.Rollback()
}

// Exec executes the given query
func (d *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	if d.tx != nil {
		return d.tx.Exec(query, args...)
	}

	return d.conn.Exec(query, args...)
}

// Query runs the given query and returns the matching rows
func (d *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if d.tx != nil {
		return d.tx.Query(query, args...)
	}

	return d.conn.Query(query, args...)
}

// QueryRow runs the given query that is expected to return at most one row
func (d *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	if d.tx != nil {
		return d.tx.QueryRow(query, args...)
	}

	return d.conn.QueryRow(query, args...)
}

// Close closes the underlying connection
func (d *DB) Close() error {
	return d.conn.Close()
}
