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
	"github.com/dcp-vardis/dcpd/srp"
	"github.com/dcp-vardis/dcpd/srpstore"
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
		nodeIdFlag       string
		configFile       string
		bpSocket         string
		bpShmDir         string
		managementSocket string
	)

	cfg := dcpconfig.DefaultSRPConfig()
	logCfg := dcpconfig.DefaultLoggingConfig()

	flag.StringVar(&configFile, "config", "", "Path to an INI config file with [srp] and [logging] sections")
	flag.StringVar(&nodeIdFlag, "nodeid", "", "This node's id, as a MAC-style address (required)")
	flag.StringVar(&bpSocket, "bpsocket", "/tmp/dcp-bp-command-socket", "Path to the running BP daemon's command socket")
	flag.StringVar(&bpShmDir, "bpshmdir", "/dev/shm", "Directory the BP daemon creates client control segments in")
	flag.StringVar(&managementSocket, "commandsocket", "/tmp/dcp-srp-command-socket", "Path for SRP's application management socket")
	flag.StringVar(&logCfg.SeverityLevel, "loglevel", logCfg.SeverityLevel, "Log severity: trace, debug, info, warning, error, fatal")
	flag.Parse()

	if configFile != "" {
		if err := dcpconfig.LoadSection(configFile, "srp", &cfg); err != nil {
			log.Fatal(err)
		}
		if err := dcpconfig.LoadSection(configFile, "logging", &logCfg); err != nil {
			log.Fatal(err)
		}
	}
	if nodeIdFlag == "" {
		log.Fatal("srp-daemon: -nodeid is required")
	}
	ownNodeId, err := parseNodeId(nodeIdFlag)
	if err != nil {
		log.Fatalf("srp-daemon: invalid -nodeid: %v", err)
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
		ProtocolId:        wiretypes.ProtocolIdSRP,
		ProtocolName:      "srp",
		MaxPayloadSize:    32,
		QueueingMode:      bp.QueueingDropHead,
	})
	if err != nil {
		logger.Fatalf("srp-daemon: register with bp-daemon: %v", err)
	}

	store := srpstore.New()
	manager := srp.NewManager(store, ownNodeId)

	daemon, err := srp.NewDaemon(srp.DaemonConfig{
		OwnNodeId:        ownNodeId,
		GenerationPeriod: time.Duration(cfg.GenerationPeriodMS) * time.Millisecond,
		ScrubbingPeriod:  time.Duration(cfg.ScrubbingPeriodMS) * time.Millisecond,
		ScrubbingTimeout: time.Duration(cfg.ScrubbingTimeoutMS) * time.Millisecond,
		KeepaliveTimeout: time.Duration(cfg.KeepaliveTimeoutMS) * time.Millisecond,
		ManagementSocket: managementSocket,
	}, store, manager, bpc)
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("srp-daemon: starting, node %s", ownNodeId)
	if err := daemon.Run(ctx); err != nil {
		logger.Fatal(err)
	}
	bpc.Close()
}
