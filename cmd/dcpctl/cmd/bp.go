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

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/bp"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

var bpCmd = &cobra.Command{
	Use:   "bp",
	Short: "inspect the beaconing protocol daemon",
}

var knownProtocolNames = map[wiretypes.BPProtocolId]string{
	wiretypes.ProtocolIdSRP:    "srp",
	wiretypes.ProtocolIdVardis: "vardis",
}

func protocolName(id wiretypes.BPProtocolId) string {
	if name, ok := knownProtocolNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(id))
}

var bpListProtocolsCmd = &cobra.Command{
	Use:   "list-protocols",
	Short: "list protocols currently registered with the BP daemon",
	Run: func(_ *cobra.Command, _ []string) {
		req := []byte{byte(bp.CmdListRegisteredProtocols)}
		resp, err := cmdsock.Request(bpSocket, requestTimeout, req)
		if err != nil {
			log.Fatal(err)
		}
		if len(resp) == 0 {
			log.Fatal("dcpctl: empty response from bp daemon")
		}
		status := bp.Status(resp[0])
		if status != bp.StatusOK {
			log.Fatalf("bp daemon: %s", status)
		}

		a := asm.NewAreaForReading(resp[1:], len(resp)-1)
		var ids []wiretypes.BPProtocolId
		for a.Remaining() > 0 {
			var id wiretypes.BPProtocolId
			if err := id.Deserialize(a); err != nil {
				break
			}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"protocol id", "name"})
		for _, id := range ids {
			table.Append([]string{fmt.Sprintf("0x%04x", uint16(id)), protocolName(id)})
		}
		table.Render()
	},
}

// bpStatsCmd reads the daemon's JSON stats endpoint directly rather than
// going through the command socket: bp.CmdGetStatistics has no handler in
// bp.Manager.Handle, so the counters dcpstats.JSONStats already tracks are
// only reachable over the monitoring http port.
var bpStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "print the BP daemon's counters",
	Run: func(_ *cobra.Command, _ []string) {
		client := &http.Client{Timeout: requestTimeout}
		resp, err := client.Get(bpMonitoringAddr)
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}

		var values map[string]int64
		if err := json.Unmarshal(body, &values); err != nil {
			log.Fatal(err)
		}

		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"counter", "value"})
		for _, name := range names {
			val := fmt.Sprintf("%d", values[name])
			if values[name] == 0 {
				val = color.YellowString(val)
			}
			table.Append([]string{name, val})
		}
		table.Render()
	},
}

func init() {
	RootCmd.AddCommand(bpCmd)
	bpCmd.AddCommand(bpListProtocolsCmd)
	bpCmd.AddCommand(bpStatsCmd)
}
