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
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/vmihailenco/msgpack/v5"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/internal/syncmap"
	"github.com/rivet-gg/modules/log"
)

var (
	metaBucket     = []byte("meta")
	stateBucket    = []byte("state")
	kvBucket       = []byte("kv")
	scheduleBucket = []byte("schedule")
)

const (
	durablePoolSize    = 256
	durableOpenTimeout = 5 * time.Second
	wakeJobName        = "wakeup"
)

// durableMeta is the creation record persisted per instance. It lets the
// driver rehydrate instances lazily after a restart and answer Exists
// without touching the state bucket.
type durableMeta struct {
	Module    string `msgpack:"m"`
	Kind      string `msgpack:"k"`
	Instance  string `msgpack:"i"`
	CreatedAt int64  `msgpack:"c"`
}

// scheduleEntry is one pending wake-up in the durable schedule index. The
// index key is the 8-byte big-endian trigger time followed by a random
// 16-byte id, so a forward cursor walks entries in trigger order.
type scheduleEntry struct {
	Key      string `msgpack:"s"`
	Module   string `msgpack:"m"`
	Kind     string `msgpack:"k"`
	Instance string `msgpack:"i"`
	At       int64  `msgpack:"a"`
	Method   string `msgpack:"f"`
	Payload  []byte `msgpack:"p"`
}

// DurableDriver hosts actor instances on top of an embedded key/value
// store. State, per instance storage and pending wake-ups all survive
// restarts; instances rehydrate lazily on their first call.
//
// A single wake-up timer serves the whole schedule: after every schedule
// write, fire and destroy, the timer is re-armed to the earliest pending
// entry. Firing drains every due entry and invokes the scheduled methods
// through the regular call path.
//
// Handlers run behind a host boundary: their log output is captured and
// replayed to the driver logger after the call, and errors are flattened
// through the wire envelope so only code, message, metadata and cause
// structure cross the boundary.
type DurableDriver struct {
	registry    *Registry
	path        string
	db          *bbolt.DB
	records     *syncmap.SyncMap[string, *durableRecord]
	generations *syncmap.SyncMap[string, *atomic.Uint64]
	tasks       *syncmap.SyncMap[string, *sync.WaitGroup]
	flight      singleflight.Group
	scheduler   quartz.Scheduler
	wakeKey     *quartz.JobKey
	wakeMu      sync.Mutex
	pool        *ants.Pool
	log         log.Logger
	baseCtx     context.Context
	cancel      context.CancelFunc
	started     *atomic.Bool
}

// ensure DurableDriver implements the Driver and hooks interfaces
var (
	_ Driver = (*DurableDriver)(nil)
	_ hooks  = (*DurableDriver)(nil)
)

// durableRecord is the in-process activation of one durable instance. The
// mutex is the instance's logical thread; the state of record lives in the
// store, not here.
type durableRecord struct {
	mu    sync.Mutex
	id    Identity
	reg   *registration
	actor Actor
}

// DurableOption configures a DurableDriver.
type DurableOption func(*DurableDriver)

// WithDurableLogger sets the driver logger.
func WithDurableLogger(logger log.Logger) DurableOption {
	return func(d *DurableDriver) {
		d.log = logger
	}
}

// NewDurableDriver creates a durable driver persisting to the database file
// at the given path. Start must be called before use.
func NewDurableDriver(registry *Registry, path string, opts ...DurableOption) *DurableDriver {
	driver := &DurableDriver{
		registry:    registry,
		path:        path,
		records:     syncmap.New[string, *durableRecord](),
		generations: syncmap.New[string, *atomic.Uint64](),
		tasks:       syncmap.New[string, *sync.WaitGroup](),
		wakeKey:     quartz.NewJobKey(wakeJobName),
		log:         log.DefaultLogger,
		started:     atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(driver)
	}
	return driver
}

// Start opens the store, starts the wake-up scheduler and re-arms the timer
// from the persisted schedule index so wake-ups written before a restart
// still fire.
func (d *DurableDriver) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return nil
	}
	db, err := bbolt.Open(d.path, 0600, &bbolt.Options{Timeout: durableOpenTimeout})
	if err != nil {
		return errors.Internal(err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{metaBucket, stateBucket, kvBucket, scheduleBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return errors.Internal(err)
	}
	d.db = db

	pool, err := ants.NewPool(durablePoolSize, ants.WithLogger(poolLogger{d.log}))
	if err != nil {
		_ = db.Close()
		return errors.Internal(err)
	}
	d.pool = pool

	scheduler, err := quartz.NewStdScheduler()
	if err != nil {
		pool.Release()
		_ = db.Close()
		return errors.Internal(err)
	}
	d.scheduler = scheduler
	d.baseCtx, d.cancel = context.WithCancel(context.Background())
	d.scheduler.Start(d.baseCtx)
	d.rearm()
	return nil
}

// Stop implements Driver. It stops the wake-up scheduler, waits for tracked
// background tasks and closes the store.
func (d *DurableDriver) Stop(ctx context.Context) error {
	if !d.started.CompareAndSwap(true, false) {
		return nil
	}
	d.scheduler.Stop()
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
		_ = d.db.Close()
		return ctx.Err()
	}
	d.pool.Release()
	if err := d.db.Close(); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// Create implements Driver.
func (d *DurableDriver) Create(ctx context.Context, id Identity, input any) error {
	_, _, err := d.create(ctx, id, input)
	return err
}

// Call implements Driver.
func (d *DurableDriver) Call(ctx context.Context, id Identity, method string, request any) (any, error) {
	record, err := d.activate(id)
	if err != nil {
		return nil, err
	}
	return d.invoke(ctx, record, method, request)
}

// GetOrCreateAndCall implements Driver.
func (d *DurableDriver) GetOrCreateAndCall(ctx context.Context, id Identity, input any, method string, request any) (any, error) {
	record, _, err := d.create(ctx, id, input)
	if err != nil && !errors.IsCode(err, errors.CodeActorAlreadyExists) {
		return nil, err
	}
	if record == nil {
		record, err = d.activate(id)
		if err != nil {
			return nil, err
		}
	}
	return d.invoke(ctx, record, method, request)
}

// Exists implements Driver.
func (d *DurableDriver) Exists(ctx context.Context, id Identity) (bool, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return false, err
	}
	return d.exists(reg.key(id))
}

// Destroy implements Driver.
//
// Like the in-memory driver, Destroy bumps the generation before touching
// the store, so an in-flight handler fails its final persist with a
// CodeActorDestroyed error instead of writing on behalf of a dead actor.
func (d *DurableDriver) Destroy(ctx context.Context, id Identity) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	key := reg.key(id)
	exists, err := d.exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	d.generationCounter(key).Inc()
	d.records.Delete(key)
	err = d.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(metaBucket).Delete([]byte(key)); err != nil {
			return err
		}
		if err := tx.Bucket(stateBucket).Delete([]byte(key)); err != nil {
			return err
		}
		if tx.Bucket(kvBucket).Bucket([]byte(key)) != nil {
			if err := tx.Bucket(kvBucket).DeleteBucket([]byte(key)); err != nil {
				return err
			}
		}
		cursor := tx.Bucket(scheduleBucket).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			entry := new(scheduleEntry)
			if err := msgpack.Unmarshal(v, entry); err != nil {
				return err
			}
			if entry.Key == key {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return errors.Internal(err)
	}
	d.rearm()
	return nil
}

// WaitTasks implements Driver.
func (d *DurableDriver) WaitTasks(ctx context.Context, id Identity) error {
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

// create activates the instance and runs Initialize behind the host
// boundary. The meta and state records are committed in a single
// transaction after Initialize succeeds.
func (d *DurableDriver) create(ctx context.Context, id Identity, input any) (*durableRecord, bool, error) {
	if !d.started.Load() {
		return nil, false, errors.New(errors.CodeInternal, "driver is not started")
	}
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, false, err
	}
	if err := id.Validate(); err != nil {
		return nil, false, errors.New(errors.CodeStateInvalid, "invalid actor identity").WithCause(err)
	}

	key := reg.key(id)
	record := &durableRecord{
		id:    id,
		reg:   reg,
		actor: reg.factory(),
	}
	record.mu.Lock()
	defer record.mu.Unlock()

	if existing, loaded := d.records.GetOrSet(key, record); loaded {
		return existing, false, errors.Newf(errors.CodeActorAlreadyExists, "actor %s already exists", id.String())
	}
	exists, err := d.exists(key)
	if err != nil {
		d.records.Delete(key)
		return nil, false, err
	}
	if exists {
		// the instance predates this process, keep the activation
		return record, false, errors.Newf(errors.CodeActorAlreadyExists, "actor %s already exists", id.String())
	}

	generation := d.generationCounter(key).Load()
	state, err := d.boundary(func(logger log.Logger) (any, error) {
		handlerCtx := newContext(ctx, d, id, generation, record.actor, record.actor.NewState(), logger)
		return record.actor.Initialize(handlerCtx, input)
	})
	if err != nil {
		d.records.Delete(key)
		return nil, false, err
	}
	bytea, err := encodeState(record.actor, state)
	if err != nil {
		d.records.Delete(key)
		return nil, false, err
	}

	meta, err := msgpack.Marshal(&durableMeta{
		Module:    id.Module(),
		Kind:      id.Kind(),
		Instance:  id.Instance(),
		CreatedAt: time.Now().UnixNano(),
	})
	if err != nil {
		d.records.Delete(key)
		return nil, false, errors.Internal(err)
	}
	if d.generationCounter(key).Load() != generation {
		d.records.Delete(key)
		return nil, false, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", id.String())
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(metaBucket).Put([]byte(key), meta); err != nil {
			return err
		}
		return tx.Bucket(stateBucket).Put([]byte(key), bytea)
	})
	if err != nil {
		d.records.Delete(key)
		return nil, false, errors.Internal(err)
	}
	return record, true, nil
}

// activate resolves an identity to its in-process activation, rehydrating
// from the store when the instance exists but has not been touched since
// the process started. Concurrent activations of the same key collapse into
// one through the flight group.
func (d *DurableDriver) activate(id Identity) (*durableRecord, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, err
	}
	key := reg.key(id)
	if record, ok := d.records.Get(key); ok {
		return record, nil
	}

	value, err, _ := d.flight.Do(key, func() (any, error) {
		if record, ok := d.records.Get(key); ok {
			return record, nil
		}
		exists, err := d.exists(key)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.Newf(errors.CodeActorNotFound, "actor %s does not exist", id.String())
		}
		record := &durableRecord{
			id:    id,
			reg:   reg,
			actor: reg.factory(),
		}
		d.records.Set(key, record)
		return record, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*durableRecord), nil
}

// invoke runs one Handle invocation under the record's logical thread,
// reading and writing the persisted state around the host boundary.
func (d *DurableDriver) invoke(ctx context.Context, record *durableRecord, method string, request any) (any, error) {
	record.mu.Lock()
	defer record.mu.Unlock()

	key := record.reg.key(record.id)
	generation := d.generationCounter(key).Load()

	var stateBytes []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(stateBucket).Get([]byte(key))
		if value != nil {
			stateBytes = make([]byte, len(value))
			copy(stateBytes, value)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Internal(err)
	}
	if stateBytes == nil {
		return nil, errors.Newf(errors.CodeActorNotFound, "actor %s does not exist", record.id.String())
	}
	state, err := decodeState(record.actor, stateBytes)
	if err != nil {
		return nil, err
	}

	handlerCtx := newContext(ctx, d, record.id, generation, record.actor, state, d.log)
	response, err := d.boundary(func(logger log.Logger) (any, error) {
		handlerCtx.logger = logger.With("actor", record.id.String())
		return record.actor.Handle(handlerCtx, method, request)
	})
	if err != nil {
		return nil, err
	}

	bytea, err := encodeState(record.actor, handlerCtx.state)
	if err != nil {
		return nil, err
	}
	if d.generationCounter(key).Load() != generation {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", record.id.String())
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(key), bytea)
	})
	if err != nil {
		return nil, errors.Internal(err)
	}
	return response, nil
}

// boundary runs a handler behind the host boundary: logs are captured and
// replayed to the driver logger afterwards, panics become internal errors,
// and errors are flattened through the wire envelope so only their
// structural content survives the crossing.
func (d *DurableDriver) boundary(fn func(logger log.Logger) (any, error)) (response any, err error) {
	capture := log.NewCapture()
	defer func() {
		capture.Replay(d.log)
		if recovered := recover(); recovered != nil {
			response = nil
			err = errors.Newf(errors.CodeInternal, "actor panicked: %v", recovered)
		}
	}()
	response, err = fn(capture)
	if err != nil {
		err = errors.Decode(errors.Encode(err))
	}
	return response, err
}

// exists reports whether a storage key has a creation record.
func (d *DurableDriver) exists(key string) (bool, error) {
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(metaBucket).Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, errors.Internal(err)
	}
	return found, nil
}

// generationCounter returns the monotonic generation counter for a storage
// key. Counters are process-local: continuations do not survive restarts,
// so the guard does not need to either.
func (d *DurableDriver) generationCounter(key string) *atomic.Uint64 {
	counter, _ := d.generations.GetOrSet(key, atomic.NewUint64(0))
	return counter
}

// rearm points the single wake-up timer at the earliest pending schedule
// entry, or disarms it when the index is empty.
func (d *DurableDriver) rearm() {
	d.wakeMu.Lock()
	defer d.wakeMu.Unlock()

	var nextAt int64
	var pending bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(scheduleBucket).Cursor().First()
		if k != nil {
			nextAt = int64(binary.BigEndian.Uint64(k[:8]))
			pending = true
		}
		return nil
	})
	if err != nil {
		d.log.Errorf("failed to read schedule index: %v", err)
		return
	}

	_ = d.scheduler.DeleteJob(d.wakeKey)
	if !pending {
		return
	}
	delay := time.Until(time.Unix(0, nextAt))
	if delay < 0 {
		delay = 0
	}
	detail := quartz.NewJobDetail(job.NewFunctionJob(func(context.Context) (bool, error) {
		d.fire()
		return true, nil
	}), d.wakeKey)
	if err := d.scheduler.ScheduleJob(detail, quartz.NewRunOnceTrigger(delay)); err != nil {
		d.log.Errorf("failed to arm wake-up timer: %v", err)
	}
}

// fire drains every due schedule entry and dispatches the scheduled calls,
// then re-arms the timer for the remainder.
func (d *DurableDriver) fire() {
	now := time.Now().UnixNano()
	var due []*scheduleEntry
	err := d.db.Update(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(scheduleBucket).Cursor()
		for k, v := cursor.First(); k != nil && int64(binary.BigEndian.Uint64(k[:8])) <= now; k, v = cursor.Next() {
			entry := new(scheduleEntry)
			if err := msgpack.Unmarshal(v, entry); err != nil {
				// drop the entry instead of wedging everything behind it
				d.log.Error(errors.New(errors.CodeScheduleEntryInvalid, "dropping undecodable schedule entry").WithCause(err))
			} else {
				due = append(due, entry)
			}
			if err := cursor.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.log.Errorf("failed to drain schedule index: %v", err)
		return
	}

	// invoke sequentially so drained entries run in timestamp order; a slow
	// call delays later wake-ups rather than reordering them
	for _, entry := range due {
		id := NewIdentity(entry.Module, entry.Kind, entry.Instance)
		if _, err := d.Call(d.baseCtx, id, entry.Method, entry.Payload); err != nil &&
			!errors.IsCode(err, errors.CodeActorDestroyed) && !errors.IsCode(err, errors.CodeActorNotFound) {
			d.log.Errorf("scheduled call %s on actor %s failed: %v", entry.Method, id.String(), err)
		}
	}
	d.rearm()
}

// storageGet implements hooks.
func (d *DurableDriver) storageGet(id Identity, key string) ([]byte, bool, error) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return nil, false, err
	}
	var value []byte
	var found bool
	err = d.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(kvBucket).Bucket([]byte(reg.key(id)))
		if bucket == nil {
			return nil
		}
		stored := bucket.Get([]byte(key))
		if stored != nil {
			found = true
			value = make([]byte, len(stored))
			copy(value, stored)
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Internal(err)
	}
	return value, found, nil
}

// storagePut implements hooks.
func (d *DurableDriver) storagePut(id Identity, key string, value []byte) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket(kvBucket).CreateBucketIfNotExists([]byte(reg.key(id)))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// storageDelete implements hooks.
func (d *DurableDriver) storageDelete(id Identity, key string) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(kvBucket).Bucket([]byte(reg.key(id)))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// scheduleAt implements hooks. The entry is durable before the call
// returns; the timer is re-armed afterwards in case the new entry became
// the earliest.
func (d *DurableDriver) scheduleAt(id Identity, at time.Time, method string, payload []byte) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	entry, err := msgpack.Marshal(&scheduleEntry{
		Key:      reg.key(id),
		Module:   id.Module(),
		Kind:     id.Kind(),
		Instance: id.Instance(),
		At:       at.UnixNano(),
		Method:   method,
		Payload:  payload,
	})
	if err != nil {
		return errors.Internal(err)
	}

	entryKey := make([]byte, 8+16)
	binary.BigEndian.PutUint64(entryKey[:8], uint64(at.UnixNano()))
	entryID := uuid.New()
	copy(entryKey[8:], entryID[:])

	var earliest bool
	err = d.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(scheduleBucket).Put(entryKey, entry); err != nil {
			return err
		}
		first, _ := tx.Bucket(scheduleBucket).Cursor().First()
		earliest = string(first) == string(entryKey)
		return nil
	})
	if err != nil {
		return errors.Internal(err)
	}
	// only re-arm when this entry moved the wake-up forward
	if earliest {
		d.rearm()
	}
	return nil
}

// persistState implements hooks. The caller holds the instance's logical
// thread.
func (d *DurableDriver) persistState(id Identity, bytea []byte) error {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return err
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(reg.key(id)), bytea)
	})
	if err != nil {
		return errors.Internal(err)
	}
	return nil
}

// spawn implements hooks.
func (d *DurableDriver) spawn(id Identity, generation uint64, task func(*Background)) error {
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
func (d *DurableDriver) call(ctx context.Context, id Identity, method string, request any) (any, error) {
	return d.Call(ctx, id, method, request)
}

// generation implements hooks.
func (d *DurableDriver) generation(id Identity) (uint64, bool) {
	reg, err := d.registry.lookup(id.Module(), id.Kind())
	if err != nil {
		return 0, false
	}
	key := reg.key(id)
	if _, ok := d.records.Get(key); !ok {
		exists, err := d.exists(key)
		if err != nil || !exists {
			return 0, false
		}
	}
	return d.generationCounter(key).Load(), true
}

// logger implements hooks.
func (d *DurableDriver) logger() log.Logger {
	return d.log
}
