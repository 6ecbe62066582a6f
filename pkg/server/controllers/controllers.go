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

package controllers

import (
	"github.com/leafnotes/leaf/pkg/server/app"
	"github.com/leafnotes/leaf/pkg/server/job"
)

// Controllers is a group of controllers
type Controllers struct {
	Users   *Users
	Pages   *Pages
	Folders *Folders
	Alarms  *Alarms
	Sync    *Sync
	Health  *Health
	Job     *Job
}

// New returns a new group of controllers
func New(app *app.App, runner *job.Runner) *Controllers {
	c := Controllers{}

	c.Users = NewUsers(app)
	c.Pages = NewPages(app)
	c.Folders = NewFolders(app)
	c.Alarms = NewAlarms(app)
	c.Sync = NewSync(app)
	c.Health = NewHealth(app)
	c.Job = NewJob(runner)

	return &c
}
