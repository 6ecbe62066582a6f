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

// Package upgrade checks for a newer release of the program
package upgrade

import (
	gocontext "context"
	"strings"

	"github.com/google/go-github/github"
	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/database"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
)

// upgradeInterval is 3 weeks in seconds
var upgradeInterval int64 = 86400 * 7 * 3

const (
	repoOwner = "leafnotes"
	repoName  = "leaf"
)

func getLastUpgrade(db *database.DB) (int64, error) {
	var ret int64
	if err := database.GetSystem(db, consts.SystemLastUpgrade, &ret); err != nil {
		return 0, errors.Wrap(err, "querying last upgrade time")
	}

	return ret, nil
}

func touchLastUpgrade(ctx context.LeafCtx) error {
	now := ctx.Clock.Now().Unix()
	if err := database.UpdateSystem(ctx.DB, consts.SystemLastUpgrade, now); err != nil {
		return errors.Wrap(err, "updating last upgrade time")
	}

	return nil
}

func fetchLatestVersion(ctx context.LeafCtx) (string, error) {
	gh := github.NewClient(ctx.HTTPClient)

	release, _, err := gh.Repositories.GetLatestRelease(gocontext.Background(), repoOwner, repoName)
	if err != nil {
		return "", errors.Wrap(err, "fetching the latest release")
	}

	tag := release.GetTagName()
	version := strings.TrimPrefix(tag, "v")

	return version, nil
}

func shouldCheck(ctx context.LeafCtx) (bool, error) {
	if !ctx.EnableUpgradeCheck {
		return false, nil
	}

	lastUpgrade, err := getLastUpgrade(ctx.DB)
	if err != nil {
		return false, errors.Wrap(err, "getting last upgrade time")
	}

	now := ctx.Clock.Now().Unix()

	return now-lastUpgrade > upgradeInterval, nil
}

// Check checks for a newer release if enough time has passed since the last
// check, and prints an upgrade notice if one exists
func Check(ctx context.LeafCtx) error {
	ok, err := shouldCheck(ctx)
	if err != nil {
		return errors.Wrap(err, "checking if upgrade check is due")
	}
	if !ok {
		return nil
	}

	latest, err := fetchLatestVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching the latest version")
	}

	if err := touchLastUpgrade(ctx); err != nil {
		return errors.Wrap(err, "recording the check time")
	}

	if latest == ctx.Version {
		log.Debug("already on the latest version %s\n", ctx.Version)
		return nil
	}

	log.Infof("a newer version %s is available (running %s). Visit https://github.com/%s/%s/releases to upgrade.\n",
		latest, ctx.Version, repoOwner, repoName)

	return nil
}
