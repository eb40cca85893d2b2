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

package vardis

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/bpclient"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/dcplifecycle"
	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// commandSocketAcceptPoll matches bp.Daemon's accept-loop granularity.
const commandSocketAcceptPoll = 10 * time.Millisecond

// DaemonConfig bounds the Vardis daemon's transmit/scrub cadence, per
// spec.md §6.
type DaemonConfig struct {
	OwnNodeId                   wiretypes.NodeId
	BeaconPeriod                time.Duration
	ScrubPeriod                 time.Duration
	MaxSummaries                int
	MaxPayloadSize              int
	ManagementSocket            string
	ScrubTimeoutFormula         string
	GlobalScrubTimeout          time.Duration
	LockingIndividualContainers bool
}

// Daemon supervises Vardis's four concurrent threads — transmitter,
// receiver, scrubber and the application command socket — as one
// errgroup, mirroring bp.Daemon.Run.
type Daemon struct {
	cfg        DaemonConfig
	store      *rtdb.Store
	service    *Service
	registry   *ClientRegistry
	dispatcher *Dispatcher
	estimator  *rtdb.ScrubTimeoutEstimator
	bp         *bpclient.Client
	mgmtSrv    *cmdsock.Server
}

// NewDaemon wires a Vardis daemon around store, talking to a running BP
// daemon via bpClient (already Register'd by the caller) and serving
// application clients registered through mgr over its own management
// socket.
func NewDaemon(cfg DaemonConfig, store *rtdb.Store, service *Service, registry *ClientRegistry, mgr *Manager, bpClient *bpclient.Client) (*Daemon, error) {
	srv, err := cmdsock.Listen(cfg.ManagementSocket, commandSocketAcceptPoll, mgr.Handle)
	if err != nil {
		return nil, err
	}
	est, err := rtdb.NewScrubTimeoutEstimator(cfg.ScrubTimeoutFormula, cfg.GlobalScrubTimeout)
	if err != nil {
		srv.Close()
		return nil, err
	}
	return &Daemon{
		cfg:        cfg,
		store:      store,
		service:    service,
		registry:   registry,
		dispatcher: NewDispatcher(registry, service),
		estimator:  est,
		bp:         bpClient,
		mgmtSrv:    srv,
	}, nil
}

// Run starts the management socket, dispatcher, transmitter, receiver and
// scrubber and blocks until ctx is done or one of them fails.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.mgmtSrv.Close()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return d.mgmtSrv.Serve(egCtx) })
	eg.Go(func() error { return d.dispatcher.Run(egCtx) })
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
	ticker := time.NewTicker(d.cfg.BeaconPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.transmitTick(ctx); err != nil {
				return err
			}
		}
	}
}

func (d *Daemon) transmitTick(ctx context.Context) error {
	buf := make([]byte, d.cfg.MaxPayloadSize)
	a := asm.NewArea(buf)

	d.store.Lock()
	n := FillPayload(a, d.store, d.cfg.MaxSummaries)
	d.store.Unlock()

	if n == 0 {
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
		d.applyPayload(payload)
	}
}

// applyPayload applies every disassembled container to the store. Per
// spec.md §4.12, when LockingIndividualContainers is true the store lock
// is re-acquired for each container (ApplyContainer does this itself);
// when false it is held for the entire payload instead, so no other
// thread can observe a partially-applied payload.
func (d *Daemon) applyPayload(payload []byte) {
	a := asm.NewAreaForReading(payload, len(payload))
	containers, err := Disassemble(a)
	if err != nil {
		return
	}
	if d.cfg.LockingIndividualContainers {
		for _, c := range containers {
			ApplyContainer(d.store, d.cfg.OwnNodeId, c)
		}
		return
	}
	d.store.Lock()
	defer d.store.Unlock()
	for _, c := range containers {
		applyContainerLocked(d.store, d.cfg.OwnNodeId, c)
	}
}

func (d *Daemon) runScrubber(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.ScrubPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			Scrub(d.store, d.estimator, now)
		}
	}
}

// ShutDown releases every attached application client segment.
func (d *Daemon) ShutDown() {
	d.registry.ShutDown()
}
