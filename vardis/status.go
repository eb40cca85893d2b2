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

import "fmt"

// Status is the VARDIS_STATUS_* taxonomy of spec.md §4.10/§7.
type Status uint8

const (
	StatusOK Status = iota
	StatusVariableExists
	StatusVariableDoesNotExist
	StatusVariableDescriptionTooLong
	StatusValueTooLong
	StatusEmptyValue
	StatusIllegalRepCount
	StatusNotProducer
	StatusAlreadyBeingDeleted
	StatusInternalError
)

var statusNames = map[Status]string{
	StatusOK:                         "VARDIS_STATUS_OK",
	StatusVariableExists:             "VARDIS_STATUS_VARIABLE_EXISTS",
	StatusVariableDoesNotExist:       "VARDIS_STATUS_VARIABLE_DOES_NOT_EXIST",
	StatusVariableDescriptionTooLong: "VARDIS_STATUS_VARIABLE_DESCRIPTION_TOO_LONG",
	StatusValueTooLong:               "VARDIS_STATUS_VALUE_TOO_LONG",
	StatusEmptyValue:                 "VARDIS_STATUS_EMPTY_VALUE",
	StatusIllegalRepCount:            "VARDIS_STATUS_ILLEGAL_REPCOUNT",
	StatusNotProducer:                "VARDIS_STATUS_NOT_PRODUCER",
	StatusAlreadyBeingDeleted:        "VARDIS_STATUS_ALREADY_BEING_DELETED",
	StatusInternalError:              "VARDIS_STATUS_INTERNAL_ERROR",
}

// String renders the status name, or a placeholder for an unrecognized
// value (see bp.Status.String for why this does not panic).
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("VARDIS_STATUS_UNKNOWN(%d)", uint8(s))
}
