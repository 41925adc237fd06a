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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber channel capacity. Delivery is
// non-blocking: when a subscriber stops draining its channel, further
// messages for it are dropped rather than stalling publishers.
const subscriberBuffer = 64

// Subscriber defines the subscriber interface.
//
// Note: the unexported methods intentionally prevent external
// implementations. Subscribers are created by a Stream via AddSubscriber().
type Subscriber interface {
	ID() string
	Active() bool
	Topics() []string
	// C returns the channel messages are delivered on. The channel is never
	// closed; callers select against it together with their own context.
	C() <-chan *Message
	Shutdown()

	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

// subscriber defines the subscriber.
type subscriber struct {
	id string

	topicsMu sync.Mutex
	topics   map[string]bool

	messages chan *Message

	active atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	s := &subscriber{
		id:       uuid.NewString(),
		topics:   make(map[string]bool),
		messages: make(chan *Message, subscriberBuffer),
	}
	s.active.Store(true)
	return s
}

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Active() bool {
	return s.active.Load()
}

func (s *subscriber) Topics() []string {
	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()

	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	return topics
}

func (s *subscriber) C() <-chan *Message {
	return s.messages
}

func (s *subscriber) Shutdown() {
	s.active.Store(false)
}

func (s *subscriber) signal(message *Message) {
	if !s.active.Load() {
		return
	}
	select {
	case s.messages <- message:
	default:
	}
}

func (s *subscriber) subscribe(topic string) {
	s.topicsMu.Lock()
	s.topics[topic] = true
	s.topicsMu.Unlock()
}

func (s *subscriber) unsubscribe(topic string) {
	s.topicsMu.Lock()
	delete(s.topics, topic)
	s.topicsMu.Unlock()
}
