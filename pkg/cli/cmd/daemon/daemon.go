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

package daemon

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leafnotes/leaf/pkg/cli/context"
	"github.com/leafnotes/leaf/pkg/cli/daemon"
	"github.com/leafnotes/leaf/pkg/cli/infra"
	"github.com/leafnotes/leaf/pkg/cli/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var intervalFlag time.Duration

var example = `
  leaf daemon`

// NewCmd returns a new daemon command
func NewCmd(ctx context.LeafCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Sync in the background as local data changes",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.DurationVar(&intervalFlag, "interval", 5*time.Minute, "how often to wake up without a file change")

	return cmd
}

func newRun(ctx context.LeafCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		d := daemon.New(ctx, intervalFlag)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			<-sigs
			log.Info("shutting down\n")
			d.Stop()
		}()

		log.Infof("watching for changes, waking up every %s\n", intervalFlag)

		if err := d.Run(); err != nil {
			return errors.Wrap(err, "running the daemon")
		}

		return nil
	}
}
