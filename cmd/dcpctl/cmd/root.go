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

// Package cmd implements dcpctl, the operator CLI for inspecting and
// driving running BP, Vardis and SRP daemons over their command sockets,
// the ziffy/dcpctl sibling of calnex/cmd's single RootCmd-plus-init()
// subcommand registration idiom.
package cmd

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

// RootCmd is dcpctl's entry point; each subcommand file registers itself
// against it from its own init().
var RootCmd = &cobra.Command{
	Use:   "dcpctl",
	Short: "inspect and drive running dcpd daemons",
}

var (
	bpSocket         string
	vardisSocket     string
	srpSocket        string
	bpMonitoringAddr string
	requestTimeout   time.Duration
)

func init() {
	RootCmd.PersistentFlags().StringVar(&bpSocket, "bp-socket", "/tmp/dcp-bp-command-socket", "Path to the BP daemon's management socket")
	RootCmd.PersistentFlags().StringVar(&vardisSocket, "vardis-socket", "/tmp/dcp-vardis-command-socket", "Path to the Vardis daemon's management socket")
	RootCmd.PersistentFlags().StringVar(&srpSocket, "srp-socket", "/tmp/dcp-srp-command-socket", "Path to the SRP daemon's management socket")
	RootCmd.PersistentFlags().StringVar(&bpMonitoringAddr, "bp-monitoring", "http://localhost:8881", "Base URL of the BP daemon's JSON stats endpoint")
	RootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 2*time.Second, "Timeout for a single daemon request")
}

// Execute runs dcpctl.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// parseNodeId parses a MAC-style address into a wiretypes.NodeId, the way
// every dcpd daemon's main.go takes its own -nodeid flag.
func parseNodeId(s string) (wiretypes.NodeId, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return wiretypes.NodeId{}, err
	}
	var id wiretypes.NodeId
	copy(id[:], mac)
	return id, nil
}
