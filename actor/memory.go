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
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/internal/syncmap"
	"github.com/rivet-gg/modules/log"
)

const (
	memoryWheelTick = 10 * time.Millisecond
	memoryWheelSize = 512
	memoryPoolSize  = 256
)

// MemoryDriver hosts actor instances entirely in process memory. It is the
// driver of choice for tests and local development: no files, no recovery,
// and wake-up timers driven by a hashed timing wheel instead of a durable
// schedule index.
//
// Despite living in memory it round-trips state through the same versioned
// codec as the durable driver on every call, so non-serializable state and
// migration bugs surface in tests instead of in production.
type MemoryDriver struct {
	registry    *Registry
	records     *syncmap.SyncMap[string, *memoryRecord]
	instances   *syncmap.SyncMap[string, *memoryInstance]
	generations *syncmap.SyncMap[string, *atomic.Uint64]
	schedules   *syncmap.SyncMap[string, *memorySchedule]
	scheduleSeq *atomic.Uint64
	tasks       *syncmap.SyncMap[string, *sync.WaitGroup]
	wheel       *timingwheel.TimingWheel
	pool        *ants.Pool
	log         log.Logger
	baseCtx     context.Context
	cancel      context.CancelFunc
	stopped     *atomic.Bool
}

// ensure MemoryDriver implements the Driver and hooks interfaces
var (
	_ Driver = (*MemoryDriver)(nil)
	_ hooks  = (*MemoryDriver)(nil)
)

// memoryRecord is the durable-looking half of one instance: the data that
// would live in storage on the durable host (state blob and per-instance
// storage map). The mutex is the instance's logical thread: every
// Initialize and Handle runs while holding it, and it lives here rather
// than on the cached instance so it survives the instance being rebuilt.
type memoryRecord struct {
	mu         sync.Mutex
	id         Identity
	stateBytes []byte
	storage    map[string][]byte
	initErr    error
}

// memoryInstance is the live half: the constructed actor object, cached
// for reuse and lazily rebuilt from the record when absent, the same way
// the durable host rehydrates an actor on a cold invocation.
type memoryInstance struct {
	actor       Actor
	activatedAt time.Time
	destroyed   *atomic.Bool
}

// memorySchedule is the pending wake-up queue for one instance, kept in
// timestamp order so entries fire the way the durable schedule index fires
// them.
type memorySchedule struct {
	mu       sync.Mutex
	entries  []*memoryScheduleEntry
	draining bool
}

type memoryScheduleEntry struct {
	at         int64
	seq        uint64
	method     string
	payload    []byte
	generation uint64
}

// MemoryOption configures a MemoryDriver.
type MemoryOption func(*MemoryDriver)

// WithMemoryLogger sets the driver logger.
func WithMemoryLogger(logger log.Logger) MemoryOption {
	return func(d *MemoryDriver) {
		d.log = logger
	}
}

// NewMemoryDriver creates and starts an in-memory driver for the kinds in
// the given registry.
func NewMemoryDriver(registry *Registry, opts ...MemoryOption) (*MemoryDriver, error) {
	ctx, cancel := context.WithCancel(context.Background())
	driver := &MemoryDriver{
		registry:    registry,
		records:     syncmap.New[string, *memoryRecord](),
		instances:   syncmap.New[string, *memoryInstance](),
		generations: syncmap.New[string, *atomic.Uint64](),
		schedules:   syncmap.New[string, *memorySchedule](),
		scheduleSeq: atomic.NewUint64(0),
		tasks:       syncmap.New[string, *sync.WaitGroup](),
		wheel:       timingwheel.NewTimingWheel(memoryWheelTick, memoryWheelSize),
		log:         log.DefaultLogger,
		baseCtx:     ctx,
		cancel:      cancel,
		stopped:     atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(driver)
	}

	pool, err := ants.NewPool(memoryPoolSize, ants.WithLogger(poolLogger{driver.log}))
	if err != nil {
		cancel()
		return nil, errors.Internal(err)
	}
	driver.pool = pool
	driver.wheel.Start()
	return driver, nil
}

// poolLogger adapts the driver logger to the worker pool's logger contract.
type poolLogger struct {
	log log.Logger
}

func (p poolLogger) Printf(format string, args ...any) {
	p.log.Warnf(format, args...)
}

// Create implements Driver.
func (d *MemoryDriver) Create(ctx context.Context, id Identity, input any) error {
	_, err := d.create(ctx, id, input)
	return err
}

// Call implements Driver.
func (d *MemoryDriver) Call(ctx context.Context, id Identity, method string, request any) (any, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, err
	}
	record, ok := d.records.Get(reg.key(id))
	if !ok {
		return nil, errors.Newf(errors.CodeActorNotFound, "actor %s does not exist", id.String())
	}
	return d.invoke(ctx, reg, record, method, request)
}

// GetOrCreateAndCall implements Driver.
func (d *MemoryDriver) GetOrCreateAndCall(ctx context.Context, id Identity, input any, method string, request any) (any, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, err
	}
	record, err := d.create(ctx, id, input)
	if err != nil && !errors.IsCode(err, errors.CodeActorAlreadyExists) {
		return nil, err
	}
	if record == nil {
		var ok bool
		record, ok = d.records.Get(reg.key(id))
		if !ok {
			// lost the create race and the winner was destroyed already
			return nil, errors.Newf(errors.CodeActorNotFound, "actor %s does not exist", id.String())
		}
	}
	return d.invoke(ctx, reg, record, method, request)
}

// Exists implements Driver.
func (d *MemoryDriver) Exists(ctx context.Context, id Identity) (bool, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return false, err
	}
	_, ok := d.records.Get(reg.key(id))
	return ok, nil
}

// Destroy implements Driver.
//
// Destroy deliberately does not queue behind the instance's logical thread.
// It bumps the generation first, so an in-flight handler observes the
// mismatch at its next Context operation or at its final state persist and
// fails with a CodeActorDestroyed error.
func (d *MemoryDriver) Destroy(ctx context.Context, id Identity) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	key := reg.key(id)
	if _, ok := d.records.Get(key); !ok {
		return nil
	}
	if instance, ok := d.instances.Get(key); ok {
		instance.destroyed.Store(true)
		d.log.Debugf("destroying actor %s live since %v", id.String(), instance.activatedAt)
	}
	d.generationCounter(key).Inc()
	d.records.Delete(key)
	d.instances.Delete(key)
	return nil
}

// WaitTasks implements Driver.
func (d *MemoryDriver) WaitTasks(ctx context.Context, id Identity) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	wg, ok := d.tasks.Get(reg.key(id))
	if !ok {
		return nil
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements Driver.
func (d *MemoryDriver) Stop(ctx context.Context) error {
	if !d.stopped.CompareAndSwap(false, true) {
		return nil
	}
	d.wheel.Stop()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.tasks.Range(func(_ string, wg *sync.WaitGroup) {
			wg.Wait()
		})
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.pool.Release()
		return ctx.Err()
	}
	d.pool.Release()
	return nil
}

// create activates the instance and runs Initialize under its logical
// thread. It returns the new record, or nil with a CodeActorAlreadyExists
// error when the instance was already live.
func (d *MemoryDriver) create(ctx context.Context, id Identity, input any) (*memoryRecord, error) {
	if d.stopped.Load() {
		return nil, errors.New(errors.CodeInternal, "driver is stopped")
	}
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, errors.New(errors.CodeStateInvalid, "invalid actor identity").WithCause(err)
	}

	key := reg.key(id)
	record := &memoryRecord{
		id:      id,
		storage: make(map[string][]byte),
	}
	// hold the logical thread across insertion so racing callers queue
	// behind Initialize instead of observing a half-built instance
	record.mu.Lock()
	defer record.mu.Unlock()

	if existing, loaded := d.records.GetOrSet(key, record); loaded {
		// surface a failed concurrent Initialize rather than pretending the
		// loser found a healthy instance
		existing.mu.Lock()
		initErr := existing.initErr
		existing.mu.Unlock()
		if initErr != nil {
			return nil, initErr
		}
		return nil, errors.Newf(errors.CodeActorAlreadyExists, "actor %s already exists", id.String())
	}

	instance := d.instance(key, reg)
	generation := d.generationCounter(key).Load()
	handlerCtx := newContext(ctx, d, id, generation, instance.actor, instance.actor.NewState(), d.log)
	state, err := instance.actor.Initialize(handlerCtx, input)
	if err != nil {
		record.initErr = err
		d.records.Delete(key)
		d.instances.Delete(key)
		return nil, err
	}
	bytea, err := encodeState(instance.actor, state)
	if err != nil {
		record.initErr = err
		d.records.Delete(key)
		d.instances.Delete(key)
		return nil, err
	}
	if d.generationCounter(key).Load() != generation {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", id.String())
	}
	record.stateBytes = bytea
	return record, nil
}

// instance returns the cached live instance for a key, constructing one
// from the registered factory when absent. Callers hold the record's
// logical thread, so construction is not racing another activation of the
// same instance.
func (d *MemoryDriver) instance(key string, reg *registration) *memoryInstance {
	instance, ok := d.instances.Get(key)
	if !ok {
		instance, _ = d.instances.GetOrSet(key, &memoryInstance{
			actor:       reg.factory(),
			activatedAt: time.Now(),
			destroyed:   atomic.NewBool(false),
		})
	}
	return instance
}

// invoke runs one Handle invocation under the record's logical thread,
// round-tripping state through the versioned codec on both sides.
func (d *MemoryDriver) invoke(ctx context.Context, reg *registration, record *memoryRecord, method string, request any) (any, error) {
	record.mu.Lock()
	defer record.mu.Unlock()
	if record.initErr != nil {
		return nil, record.initErr
	}

	key := reg.key(record.id)
	// the record may have been destroyed between lookup and lock; bail
	// before rebuilding an instance for it
	if current, ok := d.records.Get(key); !ok || current != record {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", record.id.String())
	}

	instance := d.instance(key, reg)
	if instance.destroyed.Load() {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", record.id.String())
	}
	generation := d.generationCounter(key).Load()
	state, err := decodeState(instance.actor, record.stateBytes)
	if err != nil {
		return nil, err
	}

	handlerCtx := newContext(ctx, d, record.id, generation, instance.actor, state, d.log)
	response, err := instance.actor.Handle(handlerCtx, method, request)
	if err != nil {
		return nil, err
	}
	bytea, err := encodeState(instance.actor, handlerCtx.state)
	if err != nil {
		return nil, err
	}
	if d.generationCounter(key).Load() != generation {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", record.id.String())
	}
	record.stateBytes = bytea
	return response, nil
}

// generationCounter returns the monotonic generation counter for a storage
// key. Counters outlive destroy and recreate cycles on purpose.
func (d *MemoryDriver) generationCounter(key string) *atomic.Uint64 {
	counter, _ := d.generations.GetOrSet(key, atomic.NewUint64(0))
	return counter
}

// storageGet implements hooks.
func (d *MemoryDriver) storageGet(id Identity, key string) ([]byte, bool, error) {
	record, err := d.record(id)
	if err != nil {
		return nil, false, err
	}
	value, ok := record.storage[key]
	return value, ok, nil
}

// storagePut implements hooks.
func (d *MemoryDriver) storagePut(id Identity, key string, value []byte) error {
	record, err := d.record(id)
	if err != nil {
		return err
	}
	record.storage[key] = value
	return nil
}

// storageDelete implements hooks.
func (d *MemoryDriver) storageDelete(id Identity, key string) error {
	record, err := d.record(id)
	if err != nil {
		return err
	}
	delete(record.storage, key)
	return nil
}

// persistState implements hooks. The caller holds the instance's logical
// thread, so the write is not racing a concurrent handler.
func (d *MemoryDriver) persistState(id Identity, bytea []byte) error {
	record, err := d.record(id)
	if err != nil {
		return err
	}
	record.stateBytes = bytea
	return nil
}

// scheduleAt implements hooks. The schedule is not durable: a stopped
// memory driver forgets its pending wake-ups, which is the point of this
// driver.
func (d *MemoryDriver) scheduleAt(id Identity, at time.Time, method string, payload []byte) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	key := reg.key(id)
	queue, _ := d.schedules.GetOrSet(key, new(memorySchedule))
	entry := &memoryScheduleEntry{
		at:         at.UnixNano(),
		seq:        d.scheduleSeq.Inc(),
		method:     method,
		payload:    payload,
		generation: d.generationCounter(key).Load(),
	}
	queue.mu.Lock()
	queue.entries = append(queue.entries, entry)
	sort.Slice(queue.entries, func(i, j int) bool {
		a, b := queue.entries[i], queue.entries[j]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.seq < b.seq
	})
	queue.mu.Unlock()

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	d.wheel.AfterFunc(delay, func() {
		if d.stopped.Load() {
			return
		}
		if err := d.pool.Submit(func() {
			d.drainSchedule(id, key, queue)
		}); err != nil {
			d.log.Errorf("failed to submit scheduled call %s on actor %s: %v", method, id.String(), err)
		}
	})
	return nil
}

// drainSchedule pops due entries one at a time and invokes them in
// timestamp order. The draining flag keeps concurrent wheel firings for
// the same instance from racing each other: whichever drain holds it keeps
// going until nothing is due, and the emptiness check and the flag clear
// happen under the same lock so a freshly pushed due entry is never
// stranded.
func (d *MemoryDriver) drainSchedule(id Identity, key string, queue *memorySchedule) {
	for {
		queue.mu.Lock()
		if queue.draining {
			queue.mu.Unlock()
			return
		}
		var entry *memoryScheduleEntry
		if len(queue.entries) > 0 && queue.entries[0].at <= time.Now().UnixNano() {
			entry = queue.entries[0]
			queue.entries = queue.entries[1:]
			queue.draining = true
		}
		queue.mu.Unlock()
		if entry == nil {
			return
		}

		// entries for a destroyed generation are popped and dropped
		if d.generationCounter(key).Load() == entry.generation {
			if _, err := d.Call(d.baseCtx, id, entry.method, entry.payload); err != nil && !errors.IsCode(err, errors.CodeActorDestroyed) {
				d.log.Errorf("scheduled call %s on actor %s failed: %v", entry.method, id.String(), err)
			}
		}

		queue.mu.Lock()
		queue.draining = false
		queue.mu.Unlock()
	}
}

// spawn implements hooks.
func (d *MemoryDriver) spawn(id Identity, generation uint64, task func(*Background)) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	key := reg.key(id)
	wg, _ := d.tasks.GetOrSet(key, new(sync.WaitGroup))
	wg.Add(1)

	background := &Background{
		ctx:        d.baseCtx,
		driver:     d,
		id:         id,
		generation: generation,
		logger:     d.log.With("actor", id.String()),
	}
	if err := d.pool.Submit(func() {
		defer wg.Done()
		task(background)
	}); err != nil {
		wg.Done()
		return errors.Internal(err)
	}
	return nil
}

// call implements hooks.
func (d *MemoryDriver) call(ctx context.Context, id Identity, method string, request any) (any, error) {
	return d.Call(ctx, id, method, request)
}

// generation implements hooks.
func (d *MemoryDriver) generation(id Identity) (uint64, bool) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return 0, false
	}
	key := reg.key(id)
	if _, ok := d.records.Get(key); !ok {
		return 0, false
	}
	return d.generationCounter(key).Load(), true
}

// logger implements hooks.
func (d *MemoryDriver) logger() log.Logger {
	return d.log
}

// record resolves an identity to its live record.
func (d *MemoryDriver) record(id Identity) (*memoryRecord, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, err
	}
	record, ok := d.records.Get(reg.key(id))
	if !ok {
		return nil, errors.Newf(errors.CodeActorNotFound, "actor %s does not exist", id.String())
	}
	return record, nil
}
