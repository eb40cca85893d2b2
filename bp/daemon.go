/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bp

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/dcplifecycle"
)

// commandSocketAcceptPoll bounds the command socket's accept loop so ctx
// cancellation is observed promptly, matching bptransport.ReadPollTimeout.
const commandSocketAcceptPoll = 10 * time.Millisecond

// Daemon supervises BP's three concurrent threads of spec.md §4.1 (receiver,
// transmitter, command-socket management) as a single errgroup, the way
// fbclock/daemon.Daemon.Run supervises its own worker goroutines: the first
// thread to fail cancels the rest.
type Daemon struct {
	Registry    *Registry
	Transmitter *Transmitter
	Receiver    *Receiver
	Manager     *Manager

	CommandSocketPath string
}

// Run starts the command socket and the transmitter/receiver threads and
// blocks until ctx is done or one of them returns a non-cancellation error.
func (d *Daemon) Run(ctx context.Context) error {
	srv, err := cmdsock.Listen(d.CommandSocketPath, commandSocketAcceptPoll, d.Manager.Handle)
	if err != nil {
		return err
	}
	defer srv.Close()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Serve(egCtx) })
	eg.Go(func() error { return d.Transmitter.Run(egCtx) })
	eg.Go(func() error { return d.Receiver.Run(egCtx) })
	eg.Go(func() error { return dcplifecycle.RunWatchdog(egCtx) })

	if err := dcplifecycle.NotifyReady(); err != nil {
		return err
	}

	err = eg.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ShutDown deregisters every client and releases their control segments.
func (d *Daemon) ShutDown() {
	d.Registry.ShutDown()
}
