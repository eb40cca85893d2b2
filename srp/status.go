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

import "fmt"

// Status is SRP's confirm-primitive status space, per spec.md §7.
type Status uint8

const (
	StatusOK Status = iota
	StatusNoSafetyDataSet
	StatusKeepaliveExpired
	StatusNeighbourUnknown
	StatusMalformedFrame
	StatusInternalError
)

var statusNames = map[Status]string{
	StatusOK:               "SRP_STATUS_OK",
	StatusNoSafetyDataSet:  "SRP_STATUS_NO_SAFETY_DATA_SET",
	StatusKeepaliveExpired: "SRP_STATUS_KEEPALIVE_EXPIRED",
	StatusNeighbourUnknown: "SRP_STATUS_NEIGHBOUR_UNKNOWN",
	StatusMalformedFrame:   "SRP_STATUS_MALFORMED_FRAME",
	StatusInternalError:    "SRP_STATUS_INTERNAL_ERROR",
}

// String implements fmt.Stringer, falling back to a placeholder for any
// value outside the known enumeration rather than panicking, per spec.md
// §7's to_string requirement.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SRP_STATUS_UNKNOWN(%d)", uint8(s))
}
