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

package dcpstats

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// CollectProcessStats gathers process- and Go-runtime-level health
// metrics the way ptp/sptp/client.SysStats.CollectRuntimeStats does, for
// the daemon's own stats snapshot (exposed alongside the BP/Vardis/SRP
// protocol counters under the same JSONStats instance).
func CollectProcessStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("dcpstats: process.NewProcess: %w", err)
	}
	stats["process.uptime"] = int64(time.Since(procStartTime).Seconds())

	if val, err := proc.Percent(0); err == nil {
		stats["process.cpu_pct"] = int64(val * 100)
	}
	if val, err := proc.MemoryInfo(); err == nil {
		stats["process.rss"] = int64(val.RSS)
		stats["process.vms"] = int64(val.VMS)
	}
	if val, err := proc.NumFDs(); err == nil {
		stats["process.num_fds"] = int64(val)
	}
	if val, err := proc.NumThreads(); err == nil {
		stats["process.num_threads"] = int64(val)
	}

	stats["runtime.goroutines"] = int64(runtime.NumGoroutine())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats["runtime.mem.heap_alloc"] = int64(m.HeapAlloc)
	stats["runtime.mem.heap_objects"] = int64(m.HeapObjects)
	stats["runtime.mem.gc_count"] = int64(m.NumGC)

	return stats, nil
}
