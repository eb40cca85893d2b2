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
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/vardis"
	"github.com/dcp-vardis/dcpd/vardisclient"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

var vardisCmd = &cobra.Command{
	Use:   "vardis",
	Short: "inspect and edit the real-time database",
}

var (
	vardisShmDir      string
	vardisClientName  string
	vardisBufCapacity uint16
	vardisRepCnt      uint8
	vardisDescription string
	vardisValueHex    string
)

func vardisRegister() (*vardisclient.Client, error) {
	return vardisclient.Register(vardisclient.Config{
		ManagementSocket: vardisSocket,
		RequestTimeout:   requestTimeout,
		ShmDir:           vardisShmDir,
		ClientName:       vardisClientName,
		BufCapacity:      vardisBufCapacity,
	})
}

func parseVarId(s string) (wiretypes.VarId, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid variable id %q: %w", s, err)
	}
	return wiretypes.VarId(n), nil
}

var vardisListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every variable currently in the RTDB",
	Run: func(_ *cobra.Command, _ []string) {
		req := []byte{byte(vardis.CmdListVariables)}
		resp, err := cmdsock.Request(vardisSocket, requestTimeout, req)
		if err != nil {
			log.Fatal(err)
		}
		if len(resp) == 0 {
			log.Fatal("dcpctl: empty response from vardis daemon")
		}
		status := vardis.Status(resp[0])
		if status != vardis.StatusOK {
			log.Fatalf("vardis daemon: %s", status)
		}

		a := asm.NewAreaForReading(resp[1:], len(resp)-1)
		count, err := a.DeserializeUint16N()
		if err != nil {
			log.Fatal(err)
		}
		rows := make([]vardis.VariableSummary, 0, count)
		for i := 0; i < int(count); i++ {
			var id wiretypes.VarId
			var producer wiretypes.NodeId
			var repCnt wiretypes.VarRepCnt
			var seqno wiretypes.VarSeqno
			if err := id.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			if err := producer.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			if err := repCnt.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			if err := seqno.Deserialize(a); err != nil {
				log.Fatal(err)
			}
			rows = append(rows, vardis.VariableSummary{VarId: id, Producer: producer, RepCnt: repCnt, Seqno: seqno})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].VarId < rows[j].VarId })

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"varid", "producer", "repcnt", "seqno"})
		for _, r := range rows {
			table.Append([]string{
				fmt.Sprintf("%d", r.VarId),
				r.Producer.String(),
				fmt.Sprintf("%d", r.RepCnt),
				fmt.Sprintf("%d", r.Seqno),
			})
		}
		table.Render()
	},
}

var vardisDescribeCmd = &cobra.Command{
	Use:   "describe <varid>",
	Short: "print one variable's full spec and current value",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		id, err := parseVarId(args[0])
		if err != nil {
			log.Fatal(err)
		}
		body := asm.NewArea(make([]byte, 1+id.TotalSize()))
		_ = body.SerializeByte(byte(vardis.CmdDescribeVariable))
		if err := id.Serialize(body); err != nil {
			log.Fatal(err)
		}
		resp, err := cmdsock.Request(vardisSocket, requestTimeout, body.Bytes())
		if err != nil {
			log.Fatal(err)
		}
		if len(resp) == 0 {
			log.Fatal("dcpctl: empty response from vardis daemon")
		}
		status := vardis.Status(resp[0])
		if status != vardis.StatusOK {
			log.Fatalf("vardis daemon: %s", status)
		}

		a := asm.NewAreaForReading(resp[1:], len(resp)-1)
		var spec wiretypes.VarSpec
		var seqno wiretypes.VarSeqno
		var value wiretypes.VarValue
		if err := spec.Deserialize(a); err != nil {
			log.Fatal(err)
		}
		if err := seqno.Deserialize(a); err != nil {
			log.Fatal(err)
		}
		if err := value.Deserialize(a); err != nil {
			log.Fatal(err)
		}

		fmt.Printf("varid:       %d\n", spec.VarId)
		fmt.Printf("producer:    %s\n", spec.Producer)
		fmt.Printf("repcnt:      %d\n", spec.RepCnt)
		fmt.Printf("description: %s\n", spec.Description)
		fmt.Printf("seqno:       %d\n", seqno)
		fmt.Printf("value:       %s\n", hex.EncodeToString(value))
	},
}

var vardisCreateCmd = &cobra.Command{
	Use:   "create <varid> <producer-nodeid>",
	Short: "create a new variable, this node must be producer of",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		id, err := parseVarId(args[0])
		if err != nil {
			log.Fatal(err)
		}
		mac, err := parseNodeId(args[1])
		if err != nil {
			log.Fatal(err)
		}
		value, err := hex.DecodeString(vardisValueHex)
		if err != nil {
			log.Fatalf("dcpctl: invalid --value hex: %v", err)
		}
		c, err := vardisRegister()
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		spec := wiretypes.VarSpec{VarId: id, Producer: mac, RepCnt: wiretypes.VarRepCnt(vardisRepCnt), Description: wiretypes.String(vardisDescription)}
		status, err := c.Create(ctx, spec, wiretypes.VarValue(value))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(status)
	},
}

var vardisUpdateCmd = &cobra.Command{
	Use:   "update <varid>",
	Short: "update a variable's value, this node must be producer of",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		id, err := parseVarId(args[0])
		if err != nil {
			log.Fatal(err)
		}
		value, err := hex.DecodeString(vardisValueHex)
		if err != nil {
			log.Fatalf("dcpctl: invalid --value hex: %v", err)
		}
		c, err := vardisRegister()
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := c.Update(ctx, id, wiretypes.VarValue(value))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(status)
	},
}

var vardisDeleteCmd = &cobra.Command{
	Use:   "delete <varid>",
	Short: "delete a variable, this node must be producer of",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		id, err := parseVarId(args[0])
		if err != nil {
			log.Fatal(err)
		}
		c, err := vardisRegister()
		if err != nil {
			log.Fatal(err)
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := c.Delete(ctx, id)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(status)
	},
}

func init() {
	RootCmd.AddCommand(vardisCmd)
	vardisCmd.AddCommand(vardisListCmd)
	vardisCmd.AddCommand(vardisDescribeCmd)
	vardisCmd.AddCommand(vardisCreateCmd)
	vardisCmd.AddCommand(vardisUpdateCmd)
	vardisCmd.AddCommand(vardisDeleteCmd)

	vardisCmd.PersistentFlags().StringVar(&vardisShmDir, "shmdir", "/dev/shm", "Directory the Vardis daemon creates client control segments in")
	vardisCmd.PersistentFlags().StringVar(&vardisClientName, "client-name", "dcpctl", "Name to register this client as")
	vardisCmd.PersistentFlags().Uint16Var(&vardisBufCapacity, "buf-capacity", 8, "Minimum chunk size in bytes of the client's control segment")

	for _, c := range []*cobra.Command{vardisCreateCmd, vardisUpdateCmd} {
		c.Flags().StringVar(&vardisValueHex, "value", "", "New value, hex-encoded")
	}
	vardisCreateCmd.Flags().Uint8Var(&vardisRepCnt, "repcnt", 1, "Number of times each update is repeated in a payload")
	vardisCreateCmd.Flags().StringVar(&vardisDescription, "description", "", "Human-readable description")
}
