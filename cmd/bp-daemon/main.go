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

package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dcp-vardis/dcpd/bp"
	"github.com/dcp-vardis/dcpd/bpshm"
	"github.com/dcp-vardis/dcpd/bptransport"
	"github.com/dcp-vardis/dcpd/dcpconfig"
	"github.com/dcp-vardis/dcpd/dcplog"
	"github.com/dcp-vardis/dcpd/dcpstats"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

func parseNodeId(s string) (wiretypes.NodeId, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return wiretypes.NodeId{}, err
	}
	var id wiretypes.NodeId
	copy(id[:], mac)
	return id, nil
}

func main() {
	var (
		configFile     string
		nodeIdFlag     string
		shmDir         string
		monitoringPort int
	)

	cfg := dcpconfig.DefaultBPConfig()
	logCfg := dcpconfig.DefaultLoggingConfig()

	flag.StringVar(&configFile, "config", "", "Path to an INI config file with [bp] and [logging] sections")
	flag.StringVar(&nodeIdFlag, "nodeid", "", "This node's id, as a MAC-style address (required)")
	flag.StringVar(&shmDir, "shmdir", "/dev/shm", "Directory for BP client control segments")
	flag.IntVar(&monitoringPort, "monitoringport", 8881, "Port to serve JSON stats on")
	flag.StringVar(&cfg.CommandSocketPath, "commandsocket", cfg.CommandSocketPath, "Path for BP's management command socket")
	flag.StringVar(&cfg.InterfaceName, "iface", cfg.InterfaceName, "Interface to send/receive beacons on")
	flag.StringVar(&logCfg.SeverityLevel, "loglevel", logCfg.SeverityLevel, "Log severity: trace, debug, info, warning, error, fatal")
	flag.Parse()

	if configFile != "" {
		if err := dcpconfig.LoadSection(configFile, "bp", &cfg); err != nil {
			log.Fatal(err)
		}
		if err := dcpconfig.LoadSection(configFile, "logging", &logCfg); err != nil {
			log.Fatal(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if nodeIdFlag == "" {
		log.Fatal("bp-daemon: -nodeid is required")
	}
	ownNodeId, err := parseNodeId(nodeIdFlag)
	if err != nil {
		log.Fatalf("bp-daemon: invalid -nodeid: %v", err)
	}

	logger, err := dcplog.Setup(dcplog.Config{
		LoggingToConsole: logCfg.LoggingToConsole,
		FilenamePrefix:   logCfg.FilenamePrefix,
		AutoFlush:        logCfg.AutoFlush,
		SeverityLevel:    logCfg.SeverityLevel,
		RotationSizeMB:   logCfg.RotationSizeMB,
	})
	if err != nil {
		log.Fatal(err)
	}

	var nodeMAC [6]byte
	copy(nodeMAC[:], ownNodeId[:])
	transport, err := bptransport.OpenPcapTransport(cfg.InterfaceName, int32(cfg.InterfaceMTUSize), uint16(cfg.InterfaceEtherType), nodeMAC)
	if err != nil {
		logger.Fatalf("bp-daemon: open transport on %s: %v", cfg.InterfaceName, err)
	}
	defer transport.Close()

	statsSink := dcpstats.NewJSONStats()
	go statsSink.Start(monitoringPort)
	stats := bp.NewStats(statsSink, cfg.BeaconSizeEWMAAlpha, cfg.InterBeaconTimeEWMAAlpha)

	registry := bp.NewRegistry()
	transmitter := bp.NewTransmitter(bp.TransmitterConfig{
		OwnNodeId:     ownNodeId,
		AvgPeriod:     time.Duration(cfg.AvgBeaconPeriodMS) * time.Millisecond,
		JitterFactor:  cfg.JitterFactor,
		MaxBeaconSize: cfg.MaxBeaconSize,
	}, registry, transport, stats)
	receiver := bp.NewReceiver(ownNodeId, registry, transport, stats)
	factory := bpshm.Factory{Dir: shmDir, ChunkSize: cfg.MaxBeaconSize}
	manager := bp.NewManager(registry, factory, stats)

	daemon := &bp.Daemon{
		Registry:          registry,
		Transmitter:       transmitter,
		Receiver:          receiver,
		Manager:           manager,
		CommandSocketPath: cfg.CommandSocketPath,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("bp-daemon: starting on %s, node %s", cfg.InterfaceName, ownNodeId)
	if err := daemon.Run(ctx); err != nil {
		logger.Fatal(err)
	}
	daemon.ShutDown()
}
