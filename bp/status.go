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

import "fmt"

// Status is the BP_STATUS_* taxonomy carried by every command-socket
// confirm. Every Status has a String() the way facebook/time's
// ptp/protocol.MessageType does for its own enumerants.
type Status uint8

const (
	StatusOK Status = iota
	StatusProtocolAlreadyRegistered
	StatusIllegalMaxPayloadSize
	StatusUnknownQueueingMode
	StatusUnknownProtocol
	StatusInactive
	StatusEmptyPayload
	StatusPayloadTooLarge
	StatusShmOpenFailed
	StatusInternalError
)

var statusNames = map[Status]string{
	StatusOK:                        "BP_STATUS_OK",
	StatusProtocolAlreadyRegistered: "BP_STATUS_PROTOCOL_ALREADY_REGISTERED",
	StatusIllegalMaxPayloadSize:     "BP_STATUS_ILLEGAL_MAX_PAYLOAD_SIZE",
	StatusUnknownQueueingMode:       "BP_STATUS_UNKNOWN_QUEUEING_MODE",
	StatusUnknownProtocol:           "BP_STATUS_UNKNOWN_PROTOCOL",
	StatusInactive:                  "BP_STATUS_INACTIVE",
	StatusEmptyPayload:              "BP_STATUS_EMPTY_PAYLOAD",
	StatusPayloadTooLarge:           "BP_STATUS_PAYLOAD_TOO_LARGE",
	StatusShmOpenFailed:             "BP_STATUS_SHM_OPEN_FAILED",
	StatusInternalError:             "BP_STATUS_INTERNAL_ERROR",
}

// String renders the status name, or a placeholder for a value outside the
// known taxonomy rather than panicking: a daemon and its CLI peer may run
// different binary versions, and an unrecognized status on the wire is a
// fact to report, not a programmer error to crash on.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("BP_STATUS_UNKNOWN(%d)", uint8(s))
}

// QueueingMode selects how a registered client's outgoing payloads are
// buffered between submission and transmission.
type QueueingMode uint8

const (
	QueueingOnce QueueingMode = iota
	QueueingRepeat
	QueueingDropTail
	QueueingDropHead
)

var queueingModeNames = map[QueueingMode]string{
	QueueingOnce:     "ONCE",
	QueueingRepeat:   "REPEAT",
	QueueingDropTail: "QUEUE_DROPTAIL",
	QueueingDropHead: "QUEUE_DROPHEAD",
}

func (m QueueingMode) String() string {
	if name, ok := queueingModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("QUEUEING_UNKNOWN(%d)", uint8(m))
}

// IsValid reports whether m is one of the four defined queueing modes.
func (m QueueingMode) IsValid() bool {
	_, ok := queueingModeNames[m]
	return ok
}
