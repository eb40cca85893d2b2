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

// Package dcplog wires up logrus for the three dcpd daemons, the way
// cmd/ptp4u/main.go sets log level from a flag string and cmd/ptp4u's
// sibling daemons fail fast on an unrecognized one. It adds the
// size-based rotating file writer spec.md §6's logging block
// (filenamePrefix, rotationSize) asks for — no rotation library appears
// anywhere in the example pack, so RotatingWriter below is a small
// stdlib io.Writer wrapping os.OpenFile/os.Rename, not a hand-rolled
// logrus hook.
package dcplog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Config mirrors spec.md §6's logging block, shared verbatim across the
// BP, Vardis and SRP daemons.
type Config struct {
	LoggingToConsole bool
	FilenamePrefix   string
	AutoFlush        bool
	SeverityLevel    string
	RotationSizeMB   int64
}

// ParseLevel maps spec.md's severity vocabulary to a logrus.Level,
// failing the way cmd/ptp4u/main.go does on an unrecognized string.
func ParseLevel(severity string) (log.Level, error) {
	switch severity {
	case "trace":
		return log.TraceLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	default:
		return 0, fmt.Errorf("dcplog: unrecognized severity level %q", severity)
	}
}

// Setup configures the package-level logrus logger per cfg and returns it.
// If cfg.LoggingToConsole is false and a FilenamePrefix is set, output is
// redirected to a RotatingWriter; otherwise it goes to stderr, matching
// logrus's own default.
func Setup(cfg Config) (*log.Logger, error) {
	level, err := ParseLevel(cfg.SeverityLevel)
	if err != nil {
		return nil, err
	}

	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if !cfg.LoggingToConsole && cfg.FilenamePrefix != "" {
		rotationBytes := cfg.RotationSizeMB * 1024 * 1024
		if rotationBytes <= 0 {
			rotationBytes = 1 << 20 // spec.md §6: rotationSize ≥ 1 MB
		}
		w, err := NewRotatingWriter(cfg.FilenamePrefix, rotationBytes)
		if err != nil {
			return nil, err
		}
		logger.SetOutput(w)
	}

	return logger, nil
}

// RotatingWriter is an io.Writer over filenamePrefix+".log" that rotates
// the file to filenamePrefix+".log.1" (overwriting any prior rotation)
// once it exceeds maxBytes.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	rotated  string
	maxBytes int64
	file     *os.File
	size     int64
}

// NewRotatingWriter opens (creating if needed) the log file at
// prefix+".log".
func NewRotatingWriter(prefix string, maxBytes int64) (*RotatingWriter, error) {
	path := prefix + ".log"
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("dcplog: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &RotatingWriter{
		path:     path,
		rotated:  prefix + ".log.1",
		maxBytes: maxBytes,
		file:     f,
		size:     info.Size(),
	}, nil
}

// Write implements io.Writer, rotating the backing file first if this
// write would exceed maxBytes.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.path, w.rotated); err != nil && !os.IsNotExist(err) {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.size = 0
	return nil
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Dir is a small helper so callers can ensure the parent directory of a
// FilenamePrefix exists before Setup opens it.
func Dir(prefix string) string {
	return filepath.Dir(prefix)
}
