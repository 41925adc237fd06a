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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	t.Run("With buffering and ordering", func(t *testing.T) {
		capture := NewCapture()
		capture.Info("first")
		capture.Warnf("second %d", 2)
		capture.Error("third")
		capture.Debug("fourth")

		records := capture.Records()
		require.Len(t, records, 4)
		assert.Equal(t, InfoLevel, records[0].Level)
		assert.Equal(t, "first", records[0].Message)
		assert.Equal(t, WarningLevel, records[1].Level)
		assert.Equal(t, "second 2", records[1].Message)
		assert.Equal(t, ErrorLevel, records[2].Level)
		assert.Equal(t, DebugLevel, records[3].Level)
	})
	t.Run("With replay preserving order and levels", func(t *testing.T) {
		capture := NewCapture()
		capture.Info("created lobby")
		capture.Error("provision failed")

		buffer := new(bytes.Buffer)
		target := New(DebugLevel, buffer)
		capture.Replay(target)

		lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "created lobby")
		assert.Contains(t, lines[0], "info")
		assert.Contains(t, lines[1], "provision failed")
		assert.Contains(t, lines[1], "error")

		// the buffer is drained by the replay
		assert.Empty(t, capture.Records())
	})
	t.Run("With structured fields", func(t *testing.T) {
		capture := NewCapture()
		child := capture.With("lobbyId", "l-1")
		child.Info("ready")

		records := capture.Records()
		require.Len(t, records, 1)
		assert.Equal(t, "ready lobbyId=l-1", records[0].Message)
	})
	t.Run("With panic recorded before raising", func(t *testing.T) {
		capture := NewCapture()
		assert.Panics(t, func() {
			capture.Panic("boom")
		})
		records := capture.Records()
		require.Len(t, records, 1)
		assert.Equal(t, PanicLevel, records[0].Level)
	})
}
