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

// Package daemon keeps the replica reconciled in the background. It watches
// the local database file for writes and also wakes up on a fixed interval,
// syncing whenever a mutation has requested it.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/consts"
	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/leafnotes/leaf/pkg/cli/sync"
	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
)

const (
	// pollInterval is how often the file watcher polls for changes
	pollInterval = 2 * time.Second
	// debounceWindow batches a burst of writes into a single sync
	debounceWindow = 5 * time.Second
)

// Daemon syncs the replica whenever local data changes
type Daemon struct {
	ctx      context.LeafCtx
	interval time.Duration
	watcher  *watcher.Watcher
	quit     chan struct{}
}

// New creates a daemon that additionally wakes up on the given interval
func New(ctx context.LeafCtx, interval time.Duration) *Daemon {
	return &Daemon{
		ctx:      ctx,
		interval: interval,
		watcher:  watcher.New(),
		quit:     make(chan struct{}),
	}
}

func pidFilePath(ctx context.LeafCtx) string {
	return fmt.Sprintf("%s/%s/%s", ctx.Paths.Data, consts.LeafDirName, consts.DaemonPIDFileName)
}

func (d *Daemon) writePIDFile() error {
	path := pidFilePath(d.ctx)

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return errors.Wrapf(err, "writing pid file %s", path)
	}

	return nil
}

func (d *Daemon) removePIDFile() {
	if err := os.Remove(pidFilePath(d.ctx)); err != nil && !os.IsNotExist(err) {
		log.Error(errors.Wrap(err, "removing pid file").Error() + "\n")
	}
}

// maybeSync runs a sync if a mutation has requested one since the last run
func (d *Daemon) maybeSync() {
	pending, err := sync.Pending(d.ctx.DB)
	if err != nil {
		log.Error(errors.Wrap(err, "checking the pending flag").Error() + "\n")
		return
	}
	if !pending {
		return
	}

	log.Debug("daemon: sync pending, reconciling\n")

	if err := sync.Run(d.ctx, false); err != nil {
		// the pending flag survives a failed sync, so the next wakeup retries
		log.Error(errors.Wrap(err, "syncing in the background").Error() + "\n")
	}
}

// Run starts the daemon. It blocks until Stop is called.
func (d *Daemon) Run() error {
	if err := d.writePIDFile(); err != nil {
		return err
	}
	defer d.removePIDFile()

	d.watcher.SetMaxEvents(1)
	d.watcher.FilterOps(watcher.Write, watcher.Create)

	dataDir := fmt.Sprintf("%s/%s", d.ctx.Paths.Data, consts.LeafDirName)
	if err := d.watcher.Add(dataDir); err != nil {
		return errors.Wrapf(err, "watching %s", dataDir)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var debounce *time.Timer
	debounced := make(chan struct{}, 1)

	go func() {
		for {
			select {
			case event := <-d.watcher.Event:
				log.Debug("daemon: fs event %s\n", event.String())

				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceWindow, func() {
					select {
					case debounced <- struct{}{}:
					default:
					}
				})
			case err := <-d.watcher.Error:
				log.Error(errors.Wrap(err, "watching files").Error() + "\n")
			case <-d.watcher.Closed:
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-debounced:
				d.maybeSync()
			case <-ticker.C:
				d.maybeSync()
			case <-d.quit:
				d.watcher.Close()
				return
			}
		}
	}()

	if err := d.watcher.Start(pollInterval); err != nil {
		return errors.Wrap(err, "starting the file watcher")
	}

	return nil
}

// Stop shuts the daemon down
func (d *Daemon) Stop() {
	close(d.quit)
}
