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

package actor

import (
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/atomic"

	"github.com/rivet-gg/modules/errors"
)

// counterState is the persisted shape of the counter test kind.
type counterState struct {
	Count int `msgpack:"count"`
}

// counterActor is the workhorse test kind. It exercises state mutation,
// coded errors, storage, scheduling and background tasks.
type counterActor struct {
	initialized *atomic.Int64
	gate        chan struct{}
	taskErr     chan error
}

var _ Actor = (*counterActor)(nil)

func newCounterFactory() (Factory, *atomic.Int64) {
	initialized := atomic.NewInt64(0)
	return func() Actor {
		return &counterActor{
			initialized: initialized,
			gate:        make(chan struct{}),
			taskErr:     make(chan error, 1),
		}
	}, initialized
}

func (c *counterActor) Kind() string {
	return "counter"
}

func (c *counterActor) NewState() any {
	return new(counterState)
}

func (c *counterActor) Initialize(ctx *Context, input any) (any, error) {
	c.initialized.Inc()
	state := new(counterState)
	if start, ok := input.(int); ok {
		state.Count = start
	}
	ctx.Logger().Infof("counter created at %d", state.Count)
	return state, nil
}

func (c *counterActor) Handle(ctx *Context, method string, request any) (any, error) {
	state := ctx.State().(*counterState)
	switch method {
	case "increment":
		state.Count++
		return state.Count, nil
	case "get":
		return state.Count, nil
	case "fail":
		return nil, errors.New(errors.CodeForbidden, "counter said no").WithMetadata("count", strconv.Itoa(state.Count))
	case "boom":
		panic("counter exploded")
	case "putNote":
		return nil, ctx.StoragePut("note", []byte(request.(string)))
	case "getNote":
		value, ok, err := ctx.StorageGet("note")
		if err != nil {
			return nil, err
		}
		if !ok {
			return "", nil
		}
		return string(value), nil
	case "dropNote":
		return nil, ctx.StorageDelete("note")
	case "scheduleIncrement":
		return nil, ctx.Schedule(request.(time.Duration), "incrementScheduled", nil)
	case "incrementScheduled":
		state.Count++
		return nil, nil
	case "spawnGatedIncrement":
		// the task blocks on the gate so tests can destroy the actor in
		// between and observe the generation guard
		return nil, ctx.Spawn(func(b *Background) {
			<-c.gate
			_, err := b.Call("increment", nil)
			c.taskErr <- err
		})
	default:
		return nil, errors.Newf(errors.CodeMethodNotFound, "counter has no method %s", method)
	}
}

// orderActor records the order its scheduled wake-ups land in so tests can
// pin the firing order of a crowded schedule.
type orderActor struct{}

type orderState struct {
	Seen []string `msgpack:"seen"`
}

func (o *orderActor) Kind() string { return "order" }

func (o *orderActor) NewState() any {
	return new(orderState)
}

func (o *orderActor) Initialize(ctx *Context, input any) (any, error) {
	return new(orderState), nil
}

func (o *orderActor) Handle(ctx *Context, method string, request any) (any, error) {
	state := ctx.State().(*orderState)
	switch method {
	case "planMarks":
		// stagger the trigger times slightly so every entry has a distinct
		// timestamp but they all land in a tight window
		base := time.Now().Add(60 * time.Millisecond)
		for i, label := range request.([]string) {
			at := base.Add(time.Duration(i) * 5 * time.Millisecond)
			if err := ctx.ScheduleAt(at, "mark", label); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "mark":
		var label string
		if err := msgpack.Unmarshal(request.([]byte), &label); err != nil {
			return nil, err
		}
		state.Seen = append(state.Seen, label)
		if label == "bad" {
			return nil, errors.New(errors.CodeInternal, "mark refused")
		}
		return nil, nil
	case "seen":
		return append([]string(nil), state.Seen...), nil
	default:
		return nil, errors.Newf(errors.CodeMethodNotFound, "order has no method %s", method)
	}
}

// counterActorV2 is the counter kind with an evolved state shape and a
// migrator from the original shape.
type counterActorV2 struct {
	counterActor
}

type counterStateV2 struct {
	Count int    `msgpack:"count"`
	Label string `msgpack:"label"`
}

var _ StateMigrator = (*counterActorV2)(nil)

func newCounterV2Factory() Factory {
	factory, _ := newCounterFactory()
	return func() Actor {
		return &counterActorV2{counterActor: *factory().(*counterActor)}
	}
}

func (c *counterActorV2) NewState() any {
	return new(counterStateV2)
}

func (c *counterActorV2) Initialize(ctx *Context, input any) (any, error) {
	c.initialized.Inc()
	return new(counterStateV2), nil
}

func (c *counterActorV2) StateVersion() int {
	return 2
}

func (c *counterActorV2) MigrateState(version int, data []byte) (any, error) {
	if version != 1 {
		return nil, errors.Newf(errors.CodeStateInvalid, "cannot migrate from version %d", version)
	}
	old := new(counterState)
	if err := msgpack.Unmarshal(data, old); err != nil {
		return nil, err
	}
	return &counterStateV2{Count: old.Count, Label: "migrated"}, nil
}

func (c *counterActorV2) Handle(ctx *Context, method string, request any) (any, error) {
	state := ctx.State().(*counterStateV2)
	switch method {
	case "get":
		return state.Count, nil
	case "label":
		return state.Label, nil
	default:
		return nil, errors.Newf(errors.CodeMethodNotFound, "counter has no method %s", method)
	}
}
