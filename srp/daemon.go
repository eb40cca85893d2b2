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

package srp

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/bpclient"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/dcplifecycle"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// commandSocketAcceptPoll matches bp.Daemon's accept-loop granularity.
const commandSocketAcceptPoll = 10 * time.Millisecond

// DaemonConfig bounds SRP's generation/scrubbing cadence, per spec.md §4.14.
type DaemonConfig struct {
	OwnNodeId        wiretypes.NodeId
	GenerationPeriod time.Duration
	ScrubbingPeriod  time.Duration
	ScrubbingTimeout time.Duration
	KeepaliveTimeout time.Duration
	ManagementSocket string
}

// Daemon supervises SRP's three concurrent threads — transmitter, receiver
// and scrubber — plus its application command socket, as one errgroup,
// mirroring bp.Daemon and vardis.Daemon.
type Daemon struct {
	cfg     DaemonConfig
	store   *srpstore.Store
	bp      *bpclient.Client
	mgmtSrv *cmdsock.Server
}

// NewDaemon wires an SRP daemon around store, talking to a running BP
// daemon via bpClient (already Register'd by the caller) and serving
// application SetOwnSafetyData/GetNeighbour requests over mgr.
func NewDaemon(cfg DaemonConfig, store *srpstore.Store, mgr *Manager, bpClient *bpclient.Client) (*Daemon, error) {
	srv, err := cmdsock.Listen(cfg.ManagementSocket, commandSocketAcceptPoll, mgr.Handle)
	if err != nil {
		return nil, err
	}
	return &Daemon{cfg: cfg, store: store, bp: bpClient, mgmtSrv: srv}, nil
}

// Run starts the management socket, transmitter, receiver and scrubber and
// blocks until ctx is done or one of them fails.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.mgmtSrv.Close()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return d.mgmtSrv.Serve(egCtx) })
	eg.Go(func() error { return d.runTransmitter(egCtx) })
	eg.Go(func() error { return d.runReceiver(egCtx) })
	eg.Go(func() error { return d.runScrubber(egCtx) })
	eg.Go(func() error { return dcplifecycle.RunWatchdog(egCtx) })

	if err := dcplifecycle.NotifyReady(); err != nil {
		return err
	}

	err := eg.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (d *Daemon) runTransmitter(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.GenerationPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := d.transmitTick(ctx, now); err != nil {
				return err
			}
		}
	}
}

func (d *Daemon) transmitTick(ctx context.Context, now time.Time) error {
	buf := make([]byte, wiretypes.ExtendedSafetyData{}.TotalSize())
	a := asm.NewArea(buf)
	ok, status := Transmit(a, d.store, d.cfg.OwnNodeId, now, d.cfg.KeepaliveTimeout)
	if !ok {
		_ = status
		return nil
	}
	return d.bp.Submit(ctx, a.Bytes())
}

func (d *Daemon) runReceiver(ctx context.Context) error {
	for {
		payload, err := d.bp.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		a := asm.NewAreaForReading(payload, len(payload))
		Receive(a, d.store, d.cfg.OwnNodeId, time.Now())
	}
}

func (d *Daemon) runScrubber(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.ScrubbingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			Scrub(d.store, now, d.cfg.ScrubbingTimeout)
		}
	}
}
