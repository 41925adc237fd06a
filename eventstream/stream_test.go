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

package eventstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsStream(t *testing.T) {
	t.Run("With subscription", func(t *testing.T) {
		broker := New()
		sub := broker.AddSubscriber()
		require.NotNil(t, sub)

		broker.Subscribe(sub, "lobby.l-1")
		broker.Subscribe(sub, "lobby.l-2")
		require.EqualValues(t, 1, broker.SubscribersCount("lobby.l-1"))
		require.EqualValues(t, 1, broker.SubscribersCount("lobby.l-2"))
		assert.Len(t, sub.Topics(), 2)

		broker.RemoveSubscriber(sub)
		assert.Zero(t, broker.SubscribersCount("lobby.l-1"))
		assert.Zero(t, broker.SubscribersCount("lobby.l-2"))

		// a removed subscriber cannot resubscribe
		broker.Subscribe(sub, "lobby.l-3")
		assert.Zero(t, broker.SubscribersCount("lobby.l-3"))

		t.Cleanup(broker.Close)
	})
	t.Run("With publication", func(t *testing.T) {
		broker := New()
		sub := broker.AddSubscriber()
		broker.Subscribe(sub, "lobby.l-1")

		broker.Publish("lobby.l-1", "ready")
		broker.Publish("lobby.l-9", "dropped")

		select {
		case message := <-sub.C():
			assert.Equal(t, "lobby.l-1", message.Topic())
			assert.Equal(t, "ready", message.Payload())
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for message")
		}

		select {
		case message := <-sub.C():
			t.Fatalf("unexpected message on topic %s", message.Topic())
		default:
		}

		t.Cleanup(broker.Close)
	})
	t.Run("With broadcast", func(t *testing.T) {
		broker := New()
		sub := broker.AddSubscriber()
		broker.Subscribe(sub, "t1")
		broker.Subscribe(sub, "t2")

		broker.Broadcast("hi", []string{"t1", "t2"})

		var received []*Message
		for i := 0; i < 2; i++ {
			select {
			case message := <-sub.C():
				received = append(received, message)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for broadcast")
			}
		}
		assert.Len(t, received, 2)

		t.Cleanup(broker.Close)
	})
	t.Run("With inactive subscriber dropping messages", func(t *testing.T) {
		broker := New()
		sub := broker.AddSubscriber()
		broker.Subscribe(sub, "t1")
		sub.Shutdown()

		broker.Publish("t1", "dropped")
		select {
		case <-sub.C():
			t.Fatal("inactive subscriber received a message")
		default:
		}

		t.Cleanup(broker.Close)
	})
}
