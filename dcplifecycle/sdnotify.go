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

// Package dcplifecycle wraps the systemd sd_notify handshake shared by the
// bp, vardis and srp daemons.
package dcplifecycle

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
)

// NotifyReady tells systemd the daemon has finished starting up. It is not
// an error for NOTIFY_SOCKET to be unset — that just means the daemon isn't
// running under systemd.
func NotifyReady() error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if !supported && err != nil {
		return err
	} else if !supported {
		log.Debug("sd_notify not supported, skipping READY=1")
	} else {
		log.Info("sent sd_notify READY=1")
	}
	return nil
}

// RunWatchdog pings sd_notify WATCHDOG=1 at half the interval systemd's
// WatchdogSec= configured, until ctx is done. It returns immediately,
// without error, if no watchdog is configured.
func RunWatchdog(ctx context.Context) error {
	interval, supported, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return err
	}
	if !supported {
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				return err
			}
		}
	}
}
