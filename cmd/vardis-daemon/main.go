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
	"github.com/dcp-vardis/dcpd/bpclient"
	"github.com/dcp-vardis/dcpd/dcpconfig"
	"github.com/dcp-vardis/dcpd/dcplog"
	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/vardis"
	"github.com/dcp-vardis/dcpd/vardisshm"
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
		configFile    string
		nodeIdFlag    string
		shmDir        string
		bpSocket      string
		bpShmDir      string
		scrubFormula  string
	)

	cfg := dcpconfig.DefaultVardisConfig()
	logCfg := dcpconfig.DefaultLoggingConfig()

	flag.StringVar(&configFile, "config", "", "Path to an INI config file with [vardis] and [logging] sections")
	flag.StringVar(&nodeIdFlag, "nodeid", "", "This node's id, as a MAC-style address (required)")
	flag.StringVar(&shmDir, "shmdir", "/dev/shm", "Directory for Vardis application client control segments")
	flag.StringVar(&bpSocket, "bpsocket", "/tmp/dcp-bp-command-socket", "Path to the running BP daemon's command socket")
	flag.StringVar(&bpShmDir, "bpshmdir", "/dev/shm", "Directory the BP daemon creates client control segments in")
	flag.StringVar(&scrubFormula, "scrubformula", rtdb.DefaultScrubTimeoutFormula, "Scrub timeout estimator formula")
	flag.StringVar(&cfg.CommandSocketPath, "commandsocket", cfg.CommandSocketPath, "Path for Vardis's application management socket")
	flag.StringVar(&logCfg.SeverityLevel, "loglevel", logCfg.SeverityLevel, "Log severity: trace, debug, info, warning, error, fatal")
	flag.Parse()

	if configFile != "" {
		if err := dcpconfig.LoadSection(configFile, "vardis", &cfg); err != nil {
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
		log.Fatal("vardis-daemon: -nodeid is required")
	}
	ownNodeId, err := parseNodeId(nodeIdFlag)
	if err != nil {
		log.Fatalf("vardis-daemon: invalid -nodeid: %v", err)
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

	bpc, err := bpclient.Register(bpclient.Config{
		CommandSocketPath: bpSocket,
		RequestTimeout:    5 * time.Second,
		ShmDir:            bpShmDir,
		ProtocolId:        wiretypes.ProtocolIdVardis,
		ProtocolName:      "vardis",
		MaxPayloadSize:    uint16(cfg.MaxPayloadSize),
		QueueingMode:      bp.QueueingDropTail,
		MaxEntries:        uint16(cfg.QueueMaxEntries),
	})
	if err != nil {
		logger.Fatalf("vardis-daemon: register with bp-daemon: %v", err)
	}

	store := rtdb.New()
	service := vardis.NewService(store, ownNodeId, vardis.Config{
		MaxDescriptionLength: cfg.MaxDescriptionLength,
		MaxValueLength:       cfg.MaxValueLength,
		MaxRepetitions:       uint8(cfg.MaxRepetitions),
	})
	registry := vardis.NewClientRegistry()
	factory := vardisshm.Factory{Dir: shmDir, ChunkSize: cfg.MaxValueLength + 8}
	manager := vardis.NewManager(registry, factory, store)

	daemon, err := vardis.NewDaemon(vardis.DaemonConfig{
		OwnNodeId:                   ownNodeId,
		BeaconPeriod:                time.Duration(cfg.PayloadGenerationIntervalMS) * time.Millisecond,
		ScrubPeriod:                 time.Duration(cfg.ScrubbingPeriodMS) * time.Millisecond,
		MaxSummaries:                cfg.MaxSummaries,
		MaxPayloadSize:              cfg.MaxPayloadSize,
		ManagementSocket:            cfg.CommandSocketPath,
		ScrubTimeoutFormula:         scrubFormula,
		GlobalScrubTimeout:          time.Duration(cfg.ScrubbingPeriodMS) * time.Millisecond,
		LockingIndividualContainers: cfg.LockingIndividualContainers,
	}, store, service, registry, manager, bpc)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("vardis-daemon: starting, node %s", ownNodeId)
	if err := daemon.Run(ctx); err != nil {
		logger.Fatal(err)
	}
	daemon.ShutDown()
	bpc.Close()
}
