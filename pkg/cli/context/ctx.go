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

// Package context defines leaf context
package context

import (
	"fmt"
	"net/http"
	"os"

	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/clock"
	"github.com/pkg/errors"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
	Cache  string
}

// LeafCtx is a context holding the information of the current runtime
type LeafCtx struct {
	Paths              Paths
	APIEndpoint        string
	Version            string
	DB                 *database.DB
	SessionKey         string
	SessionKeyExpiry   int64
	UserUUID           string
	Editor             string
	Locale             string
	Clock              clock.Clock
	EnableUpgradeCheck bool
	HTTPClient         *http.Client
}

// InitLeafDirs creates, if missing, the leaf directories under the
// config, data and cache base directories
func InitLeafDirs(paths Paths) error {
	for _, base := range []string{paths.Config, paths.Data, paths.Cache} {
		dir := fmt.Sprintf("%s/%s", base, consts.LeafDirName)

		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}

	return nil
}

// Redact replaces private information from the context with a set of
// placeholder values.
func Redact(ctx LeafCtx) LeafCtx {
	var sessionKey string
	if ctx.SessionKey != "" {
		sessionKey = "1"
	} else {
		sessionKey = "0"
	}
	ctx.SessionKey = sessionKey

	return ctx
}
