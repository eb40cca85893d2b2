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
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/srp"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

var srpCmd = &cobra.Command{
	Use:   "srp",
	Short: "inspect the sibling reporting protocol daemon",
}

var srpNeighboursCmd = &cobra.Command{
	Use:   "neighbours",
	Short: "list every neighbour currently tracked by the SRP daemon",
	Run: func(_ *cobra.Command, _ []string) {
		req := []byte{byte(srp.CmdListNeighbours)}
		resp, err := cmdsock.Request(srpSocket, requestTimeout, req)
		if err != nil {
			log.Fatal(err)
		}
		if len(resp) == 0 {
			log.Fatal("dcpctl: empty response from srp daemon")
		}
		status := srp.Status(resp[0])
		if status != srp.StatusOK {
			log.Fatalf("srp daemon: %s", status)
		}

		a := asm.NewAreaForReading(resp[1:], len(resp)-1)
		count, err := a.DeserializeUint16N()
		if err != nil {
			log.Fatal(err)
		}
		type row struct {
			id    wiretypes.NodeId
			data  wiretypes.SafetyData
			seqno wiretypes.VarSeqno
		}
		rows := make([]row, 0, count)
		for i := 0; i < int(count); i++ {
			var r row
			if err := r.id.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			if err := r.data.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			if err := r.seqno.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].id.String() < rows[j].id.String() })

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"node", "seqno", "position", "velocity"})
		for _, r := range rows {
			seqno := fmt.Sprintf("%d", r.seqno)
			if r.seqno == 0 {
				seqno = color.YellowString(seqno)
			}
			table.Append([]string{
				r.id.String(),
				seqno,
				fmt.Sprintf("%.2f,%.2f,%.2f", r.data.PositionX, r.data.PositionY, r.data.PositionZ),
				fmt.Sprintf("%.2f,%.2f,%.2f", r.data.VelocityX, r.data.VelocityY, r.data.VelocityZ),
			})
		}
		table.Render()
	},
}

func init() {
	RootCmd.AddCommand(srpCmd)
	srpCmd.AddCommand(srpNeighboursCmd)
}
