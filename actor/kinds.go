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
	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/internal/syncmap"
)

// Factory creates a fresh, unstarted instance of an actor kind. It is
// invoked once per activation, so implementations must not share mutable
// state between the actors they return.
type Factory func() Actor

// registration holds everything a driver needs to activate instances of a
// registered kind.
type registration struct {
	module       string
	kind         string
	factory      Factory
	storageAlias string
	moduleAlias  string
}

// KindOption configures a kind registration.
type KindOption func(*registration)

// WithStorageAlias sets the storage alias of the kind. When set, durable
// storage keys are derived from the alias instead of the kind name, which
// lets a kind be renamed without losing access to existing state.
func WithStorageAlias(alias string) KindOption {
	return func(r *registration) {
		r.storageAlias = alias
	}
}

// Registry holds the set of actor kinds known to a driver, keyed by module
// and kind name. It is safe for concurrent use.
type Registry struct {
	kinds         *syncmap.SyncMap[string, *registration]
	moduleAliases *syncmap.SyncMap[string, string]
}

// NewRegistry creates an empty kind registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:         syncmap.New[string, *registration](),
		moduleAliases: syncmap.New[string, string](),
	}
}

// Register adds a kind under the given module. The kind name is taken from
// the actor the factory produces. Registering the same module and kind
// twice returns an error.
func (r *Registry) Register(module string, factory Factory, opts ...KindOption) error {
	kind := factory().Kind()
	identity := NewIdentity(module, kind, "default")
	if err := identity.Validate(); err != nil {
		return errors.New(errors.CodeStateInvalid, "invalid kind registration").WithCause(err)
	}

	reg := &registration{
		module:  module,
		kind:    kind,
		factory: factory,
	}
	for _, opt := range opts {
		opt(reg)
	}
	if alias, ok := r.moduleAliases.Get(module); ok {
		reg.moduleAlias = alias
	}

	key := module + identitySeparator + kind
	if _, loaded := r.kinds.GetOrSet(key, reg); loaded {
		return errors.Newf(errors.CodeActorAlreadyExists, "kind %s is already registered", key)
	}
	return nil
}

// AliasModule sets the storage alias for every kind registered under the
// given module, past and future. Storage keys of the module's kinds are
// derived from the alias instead of the module name.
func (r *Registry) AliasModule(module, alias string) {
	r.moduleAliases.Set(module, alias)
	r.kinds.Range(func(_ string, reg *registration) {
		if reg.module == module {
			reg.moduleAlias = alias
		}
	})
}

// lookup resolves a module and kind to its registration.
func (r *Registry) lookup(module, kind string) (*registration, error) {
	reg, ok := r.kinds.Get(module + identitySeparator + kind)
	if !ok {
		return nil, errors.Newf(errors.CodeActorNotFound, "kind %s/%s is not registered", module, kind)
	}
	return reg, nil
}

// storageKey derives the durable storage key for an identity, honoring the
// registered aliases of its kind.
func (reg *registration) key(id Identity) string {
	return id.storageKey(reg.moduleAlias, reg.storageAlias)
}
