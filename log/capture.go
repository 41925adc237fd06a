/*
 * MIT License
 *
 * Copyright (c) 2023-2026  Rivet Gaming, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Record is a single log entry buffered by a Capture logger.
type Record struct {
	Level   Level
	Message string
	Time    time.Time
}

// Capture is a Logger that buffers every record emitted during a single actor
// call so the host driver can ship them across the host boundary and replay
// them into the caller's log stream together with the call outcome. The log
// order and levels are preserved.
//
// A Capture is safe for concurrent use. Fatal and Panic are recorded before
// they terminate the flow so the record is not lost when the buffer is
// drained by a recovery path.
type Capture struct {
	mu      sync.Mutex
	records []Record
	fields  string
}

// enforce compilation and linter error
var _ Logger = (*Capture)(nil)

// NewCapture creates a Capture logger with an empty buffer.
func NewCapture() *Capture {
	return &Capture{}
}

// Records returns a snapshot of the buffered records in emission order.
func (c *Capture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Replay re-emits every buffered record into the target logger, preserving
// order and levels, then clears the buffer.
func (c *Capture) Replay(target Logger) {
	c.mu.Lock()
	records := c.records
	c.records = nil
	c.mu.Unlock()

	for _, record := range records {
		switch record.Level {
		case DebugLevel:
			target.Debug(record.Message)
		case WarningLevel:
			target.Warn(record.Message)
		case ErrorLevel:
			target.Error(record.Message)
		default:
			target.Info(record.Message)
		}
	}
}

func (c *Capture) Debug(v ...any)                 { c.append(DebugLevel, fmt.Sprint(v...)) }
func (c *Capture) Debugf(format string, v ...any) { c.append(DebugLevel, fmt.Sprintf(format, v...)) }
func (c *Capture) Info(v ...any)                  { c.append(InfoLevel, fmt.Sprint(v...)) }
func (c *Capture) Infof(format string, v ...any)  { c.append(InfoLevel, fmt.Sprintf(format, v...)) }
func (c *Capture) Warn(v ...any)                  { c.append(WarningLevel, fmt.Sprint(v...)) }
func (c *Capture) Warnf(format string, v ...any)  { c.append(WarningLevel, fmt.Sprintf(format, v...)) }
func (c *Capture) Error(v ...any)                 { c.append(ErrorLevel, fmt.Sprint(v...)) }
func (c *Capture) Errorf(format string, v ...any) { c.append(ErrorLevel, fmt.Sprintf(format, v...)) }

func (c *Capture) Fatal(v ...any) {
	c.append(FatalLevel, fmt.Sprint(v...))
	DefaultLogger.Fatal(v...)
}

func (c *Capture) Fatalf(format string, v ...any) {
	c.append(FatalLevel, fmt.Sprintf(format, v...))
	DefaultLogger.Fatalf(format, v...)
}

func (c *Capture) Panic(v ...any) {
	c.append(PanicLevel, fmt.Sprint(v...))
	panic(fmt.Sprint(v...))
}

func (c *Capture) Panicf(format string, v ...any) {
	c.append(PanicLevel, fmt.Sprintf(format, v...))
	panic(fmt.Sprintf(format, v...))
}

// With returns a logger sharing this buffer whose messages carry the given
// key-value pairs as a formatted suffix.
func (c *Capture) With(keyValues ...any) Logger {
	pairs := make([]string, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%v=%v", keyValues[i], keyValues[i+1]))
	}
	child := &capturedChild{parent: c, fields: strings.Join(pairs, " ")}
	return child
}

// LogLevel returns DebugLevel: a capture buffer keeps everything and lets the
// replay target filter.
func (c *Capture) LogLevel() Level {
	return DebugLevel
}

// LogOutput returns no writers; captured records only exist in the buffer.
func (c *Capture) LogOutput() []io.Writer {
	return nil
}

func (c *Capture) append(level Level, message string) {
	c.mu.Lock()
	c.records = append(c.records, Record{Level: level, Message: message, Time: time.Now()})
	c.mu.Unlock()
}

// capturedChild forwards into the parent buffer with a field suffix.
type capturedChild struct {
	parent *Capture
	fields string
}

var _ Logger = (*capturedChild)(nil)

func (c *capturedChild) decorate(message string) string {
	if c.fields == "" {
		return message
	}
	return message + " " + c.fields
}

func (c *capturedChild) Debug(v ...any) { c.parent.append(DebugLevel, c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Debugf(format string, v ...any) {
	c.parent.append(DebugLevel, c.decorate(fmt.Sprintf(format, v...)))
}
func (c *capturedChild) Info(v ...any) { c.parent.append(InfoLevel, c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Infof(format string, v ...any) {
	c.parent.append(InfoLevel, c.decorate(fmt.Sprintf(format, v...)))
}
func (c *capturedChild) Warn(v ...any) { c.parent.append(WarningLevel, c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Warnf(format string, v ...any) {
	c.parent.append(WarningLevel, c.decorate(fmt.Sprintf(format, v...)))
}
func (c *capturedChild) Error(v ...any) { c.parent.append(ErrorLevel, c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Errorf(format string, v ...any) {
	c.parent.append(ErrorLevel, c.decorate(fmt.Sprintf(format, v...)))
}

func (c *capturedChild) Fatal(v ...any) { c.parent.Fatal(c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Fatalf(format string, v ...any) {
	c.parent.Fatal(c.decorate(fmt.Sprintf(format, v...)))
}
func (c *capturedChild) Panic(v ...any) { c.parent.Panic(c.decorate(fmt.Sprint(v...))) }
func (c *capturedChild) Panicf(format string, v ...any) {
	c.parent.Panic(c.decorate(fmt.Sprintf(format, v...)))
}

func (c *capturedChild) With(keyValues ...any) Logger {
	extra := c.parent.With(keyValues...).(*capturedChild)
	if c.fields != "" {
		extra.fields = c.fields + " " + extra.fields
	}
	return extra
}

func (c *capturedChild) LogLevel() Level        { return DebugLevel }
func (c *capturedChild) LogOutput() []io.Writer { return nil }
