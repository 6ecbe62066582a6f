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
	"net/http"

	"github.com/leafnotes/leaf/pkg/server/job"
)

// NewJob creates a new Job controller
func NewJob(runner *job.Runner) *Job {
	return &Job{
		runner: runner,
	}
}

// Job is a controller for triggering background jobs on demand
type Job struct {
	runner *job.Runner
}

// AlarmCheckResp is the response from the alarm check endpoint
type AlarmCheckResp struct {
	OK bool `json:"ok"`
}

// AlarmCheck handles GET /job/alarm-check. It runs an alarm check outside
// the hourly schedule. The check is a no-op when the processor is disabled.
func (j *Job) AlarmCheck(w http.ResponseWriter, r *http.Request) {
	if err := j.runner.CheckAlarms(); err != nil {
		handleJSONError(w, err, "checking alarms")
		return
	}

	respondJSON(w, http.StatusOK, AlarmCheckResp{OK: true})
}
