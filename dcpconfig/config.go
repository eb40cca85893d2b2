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

// Package dcpconfig loads the INI-like daemon configuration files of
// spec.md §6 using go-ini, the same library calnex/api wraps for its
// settings files (calnex/api/ini.go), mapping each recognized section
// straight onto a struct with ini's MapTo rather than hand-parsing keys.
package dcpconfig

import (
	"fmt"

	"github.com/go-ini/ini"
)

// BPConfig is the [bp] section of spec.md §6.
type BPConfig struct {
	InterfaceName          string  `ini:"interface_name"`
	InterfaceMTUSize       int     `ini:"interface_mtuSize"`
	InterfaceEtherType     int     `ini:"interface_etherType"`
	MaxBeaconSize          int     `ini:"maxBeaconSize"`
	AvgBeaconPeriodMS      int     `ini:"avgBeaconPeriodMS"`
	JitterFactor           float64 `ini:"jitterFactor"`
	InterBeaconTimeEWMAAlpha float64 `ini:"interBeaconTimeEWMAAlpha"`
	BeaconSizeEWMAAlpha    float64 `ini:"beaconSizeEWMAAlpha"`
	CommandSocketPath      string  `ini:"commandSocketPath"`
}

// DefaultBPConfig mirrors original_source's built-in defaults.
func DefaultBPConfig() BPConfig {
	return BPConfig{
		InterfaceName:            "wlan0",
		InterfaceMTUSize:         1500,
		InterfaceEtherType:       0x4953,
		MaxBeaconSize:            1400,
		AvgBeaconPeriodMS:        1000,
		JitterFactor:             0.1,
		InterBeaconTimeEWMAAlpha: 0.1,
		BeaconSizeEWMAAlpha:      0.1,
		CommandSocketPath:        "/tmp/dcp-bp-command-socket",
	}
}

// Validate checks BPConfig against spec.md §6's bounds.
func (c BPConfig) Validate() error {
	if c.InterfaceMTUSize < 256 {
		return fmt.Errorf("dcpconfig: interface_mtuSize must be >= 256, got %d", c.InterfaceMTUSize)
	}
	if c.InterfaceEtherType < 0x0800 {
		return fmt.Errorf("dcpconfig: interface_etherType must be >= 0x0800, got 0x%x", c.InterfaceEtherType)
	}
	if c.MaxBeaconSize <= 0 || c.MaxBeaconSize > c.InterfaceMTUSize {
		return fmt.Errorf("dcpconfig: maxBeaconSize must be in (0, mtu], got %d", c.MaxBeaconSize)
	}
	if c.AvgBeaconPeriodMS <= 0 {
		return fmt.Errorf("dcpconfig: avgBeaconPeriodMS must be > 0, got %d", c.AvgBeaconPeriodMS)
	}
	if c.JitterFactor <= 0 || c.JitterFactor >= 1 {
		return fmt.Errorf("dcpconfig: jitterFactor must be in (0,1), got %v", c.JitterFactor)
	}
	for name, alpha := range map[string]float64{
		"interBeaconTimeEWMAAlpha": c.InterBeaconTimeEWMAAlpha,
		"beaconSizeEWMAAlpha":      c.BeaconSizeEWMAAlpha,
	} {
		if alpha < 0 || alpha > 1 {
			return fmt.Errorf("dcpconfig: %s must be in [0,1], got %v", name, alpha)
		}
	}
	return nil
}

// VardisConfig is the [vardis] section of spec.md §6.
type VardisConfig struct {
	MaxValueLength              int  `ini:"maxValueLength"`
	MaxDescriptionLength        int  `ini:"maxDescriptionLength"`
	MaxRepetitions               int  `ini:"maxRepetitions"`
	MaxPayloadSize               int  `ini:"maxPayloadSize"`
	MaxSummaries                 int  `ini:"maxSummaries"`
	ScrubbingPeriodMS            int  `ini:"scrubbingPeriodMS"`
	PayloadGenerationIntervalMS  int  `ini:"payloadGenerationIntervalMS"`
	PollRTDBServiceIntervalMS    int  `ini:"pollRTDBServiceIntervalMS"`
	QueueMaxEntries               int  `ini:"queueMaxEntries"`
	LockingIndividualContainers bool `ini:"lockingIndividualContainers"`
	CommandSocketPath            string `ini:"commandSocketPath"`
}

// DefaultVardisConfig mirrors original_source's built-in defaults.
func DefaultVardisConfig() VardisConfig {
	return VardisConfig{
		MaxValueLength:               64,
		MaxDescriptionLength:         64,
		MaxRepetitions:               4,
		MaxPayloadSize:               1300,
		MaxSummaries:                 50,
		ScrubbingPeriodMS:            10000,
		PayloadGenerationIntervalMS:  1000,
		PollRTDBServiceIntervalMS:    50,
		QueueMaxEntries:              64,
		LockingIndividualContainers: false,
		CommandSocketPath:            "/tmp/dcp-vardis-command-socket",
	}
}

// Validate checks VardisConfig against spec.md §6's bounds.
func (c VardisConfig) Validate() error {
	if c.MaxValueLength <= 0 || c.MaxValueLength > 255 {
		return fmt.Errorf("dcpconfig: maxValueLength must be in (0,255], got %d", c.MaxValueLength)
	}
	if c.MaxDescriptionLength <= 0 || c.MaxDescriptionLength > 255 {
		return fmt.Errorf("dcpconfig: maxDescriptionLength must be in (0,255], got %d", c.MaxDescriptionLength)
	}
	if c.MaxRepetitions < 1 || c.MaxRepetitions > 15 {
		return fmt.Errorf("dcpconfig: maxRepetitions must be in [1,15], got %d", c.MaxRepetitions)
	}
	if c.ScrubbingPeriodMS < 1 || c.ScrubbingPeriodMS > 65000 {
		return fmt.Errorf("dcpconfig: scrubbingPeriodMS must be in [1,65000], got %d", c.ScrubbingPeriodMS)
	}
	return nil
}

// SRPConfig is the [srp] section of spec.md §6.
type SRPConfig struct {
	GenerationPeriodMS int `ini:"generationPeriodMS"`
	ReceptionPeriodMS  int `ini:"receptionPeriodMS"`
	ScrubbingPeriodMS  int `ini:"scrubbingPeriodMS"`
	KeepaliveTimeoutMS int `ini:"keepaliveTimeoutMS"`
	ScrubbingTimeoutMS int `ini:"scrubbingTimeoutMS"`
}

// DefaultSRPConfig mirrors original_source's built-in defaults.
func DefaultSRPConfig() SRPConfig {
	return SRPConfig{
		GenerationPeriodMS: 1000,
		ReceptionPeriodMS:  100,
		ScrubbingPeriodMS:  2000,
		KeepaliveTimeoutMS: 5000,
		ScrubbingTimeoutMS: 10000,
	}
}

// LoggingConfig is the logging block shared across all three daemons.
type LoggingConfig struct {
	LoggingToConsole bool   `ini:"loggingToConsole"`
	FilenamePrefix   string `ini:"filenamePrefix"`
	AutoFlush        bool   `ini:"autoFlush"`
	SeverityLevel    string `ini:"severityLevel"`
	RotationSizeMB   int64  `ini:"rotationSize"`
}

// DefaultLoggingConfig mirrors original_source's built-in defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LoggingToConsole: true,
		SeverityLevel:    "info",
		AutoFlush:        true,
		RotationSizeMB:   10,
	}
}

// LoadSection reads path and maps its named section onto defaults,
// overwriting only the keys actually present in the file — any section
// or key dcpd doesn't recognize is ignored by go-ini's MapTo, matching
// the teacher's practice of treating unknown keys as forward-compatible
// noise rather than a load error.
func LoadSection(path, section string, defaults any) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("dcpconfig: load %s: %w", path, err)
	}
	sec, err := f.GetSection(section)
	if err != nil {
		// An absent section just means "use the defaults".
		return nil
	}
	return sec.MapTo(defaults)
}
