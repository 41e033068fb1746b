// Copyright 2026 The Kestrel Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a minimal leveled logging facility for the kernel.
//
// There is a single global logger; boot code installs an emitter once and
// every subsystem logs through the package-level functions. Emitters must
// tolerate being called from any core.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the log level.
type Level uint32

const (
	// Warning indicates a problem the kernel can survive.
	Warning Level = iota

	// Info is informational output.
	Info

	// Debug is verbose scheduling and translation tracing.
	Debug
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "W"
	case Info:
		return "I"
	case Debug:
		return "D"
	default:
		return "?"
	}
}

// Emitter is the final destination for log lines.
type Emitter interface {
	// Emit emits the given log statement. Emit is responsible for
	// formatting args into format.
	Emit(level Level, timestamp time.Time, format string, args ...any)
}

// Writer writes to an output stream and accounts for dropped messages:
// if the underlying stream returns an error, the message is dropped and a
// note about the number of drops is prepended to the next successful write.
type Writer struct {
	// Next is the underlying stream.
	Next io.Writer

	// mu protects fields below.
	mu sync.Mutex

	// errors counts writes dropped due to stream errors.
	errors int64
}

// Write writes out the given bytes, dropping the message on error.
func (l *Writer) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.errors > 0 {
		// Note the dropped messages before resuming.
		if _, err := fmt.Fprintf(l.Next, "\n*** Dropped %d log messages ***\n", l.errors); err != nil {
			l.errors++
			return 0, err
		}
		l.errors = 0
	}

	n, err := l.Next.Write(data)
	if err != nil {
		l.errors++
	}
	return n, err
}

// Emit emits the message to the underlying stream.
func (l *Writer) Emit(level Level, timestamp time.Time, format string, args ...any) {
	fmt.Fprintf(l, format+"\n", args...)
}

// KernelEmitter decorates lines with a level tag and seconds-since-boot
// timestamp, in the manner of a kernel message buffer.
type KernelEmitter struct {
	// Emitter is the underlying emitter.
	Emitter

	// Boot is the epoch for the uptime stamp.
	Boot time.Time
}

// Emit emits the message with the kernel-style header.
func (k KernelEmitter) Emit(level Level, timestamp time.Time, format string, args ...any) {
	up := timestamp.Sub(k.Boot)
	prefix := fmt.Sprintf("[%5d.%06d] %s ", up/time.Second, (up%time.Second)/time.Microsecond, level)
	k.Emitter.Emit(level, timestamp, prefix+format, args...)
}

// BasicLogger is a convenience wrapper around an Emitter with a level gate.
type BasicLogger struct {
	Level
	Emitter
}

// Debugf logs at the debug level.
func (l *BasicLogger) Debugf(format string, args ...any) {
	if l.IsLogging(Debug) {
		l.Emit(Debug, time.Now(), format, args...)
	}
}

// Infof logs at the info level.
func (l *BasicLogger) Infof(format string, args ...any) {
	if l.IsLogging(Info) {
		l.Emit(Info, time.Now(), format, args...)
	}
}

// Warningf logs at the warning level.
func (l *BasicLogger) Warningf(format string, args ...any) {
	if l.IsLogging(Warning) {
		l.Emit(Warning, time.Now(), format, args...)
	}
}

// IsLogging returns whether the given level is being logged.
func (l *BasicLogger) IsLogging(level Level) bool {
	return atomic.LoadUint32((*uint32)(&l.Level)) >= uint32(level)
}

// SetLevel sets the logging level.
func (l *BasicLogger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.Level), uint32(level))
}

// logger is the global logger.
var logger atomic.Pointer[BasicLogger]

func init() {
	logger.Store(&BasicLogger{
		Level:   Info,
		Emitter: KernelEmitter{Emitter: &Writer{Next: os.Stderr}, Boot: time.Now()},
	})
}

// Log returns the global logger.
func Log() *BasicLogger {
	return logger.Load()
}

// SetTarget installs a new emitter on the global logger, preserving the
// current level. Called once during boot; also used by tests.
func SetTarget(e Emitter) {
	old := Log()
	logger.Store(&BasicLogger{Level: old.Level, Emitter: e})
}

// SetLevel sets the global logging level.
func SetLevel(level Level) {
	Log().SetLevel(level)
}

// Debugf logs to the global logger.
func Debugf(format string, args ...any) {
	Log().Debugf(format, args...)
}

// Infof logs to the global logger.
func Infof(format string, args ...any) {
	Log().Infof(format, args...)
}

// Warningf logs to the global logger.
func Warningf(format string, args ...any) {
	Log().Warningf(format, args...)
}

// IsLogging returns whether the global logger logs the given level.
func IsLogging(level Level) bool {
	return Log().IsLogging(level)
}
