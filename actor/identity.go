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
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/rivet-gg/modules/internal/validation"
)

const identitySeparator = "/"

// Identity uniquely identifies an actor instance.
//
// It consists of:
//   - module: The owning module name.
//   - kind: The actor kind name as returned by Actor.Kind.
//   - instance: The unique instance name within the kind.
//
// Identities are immutable and safe for concurrent use. The storage key
// handed to the hosts is derived from the identity (salted with the
// registered storage aliases, see Kinds) and content-addressed so that keys
// are fixed-length and collision-resistant, and renaming a logical kind does
// not orphan existing durable data.
type Identity struct {
	module   string
	kind     string
	instance string
}

// ensure Identity implements the validation.Validator interface
var _ validation.Validator = (*Identity)(nil)

// NewIdentity constructs an Identity from a module, kind and instance name.
func NewIdentity(module, kind, instance string) Identity {
	return Identity{module: module, kind: kind, instance: instance}
}

// Module returns the owning module name.
func (id Identity) Module() string {
	return id.module
}

// Kind returns the actor kind name.
func (id Identity) Kind() string {
	return id.kind
}

// Instance returns the instance name within the kind.
func (id Identity) Instance() string {
	return id.instance
}

// String returns the formatted representation "module/kind/instance".
// Useful for logging, debugging, and human-readable configuration.
func (id Identity) String() string {
	return id.module + identitySeparator + id.kind + identitySeparator + id.instance
}

// Validate implements validation.Validator.
func (id Identity) Validate() error {
	pattern := "^[a-zA-Z0-9][a-zA-Z0-9-_\\.]*$"
	customErr := errors.New("must contain only word characters (i.e. [a-zA-Z0-9] plus non-leading '-' or '_')")
	return validation.
		New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("module", id.module)).
		AddValidator(validation.NewEmptyStringValidator("kind", id.kind)).
		AddValidator(validation.NewEmptyStringValidator("instance", id.instance)).
		AddAssertion(len(id.instance) <= 255, "instance name is too long. Maximum length is 255").
		AddValidator(validation.NewPatternValidator(pattern, strings.TrimSpace(id.instance), customErr)).
		Validate()
}

// storageKey derives the content-addressed storage key for the identity.
// The module and kind segments are replaced by their storage aliases when
// set, so the durable key space follows the alias, not the logical name.
func (id Identity) storageKey(moduleAlias, kindAlias string) string {
	module := id.module
	if moduleAlias != "" {
		module = moduleAlias
	}
	kind := id.kind
	if kindAlias != "" {
		kind = kindAlias
	}
	sum := xxh3.HashString128(module + "\x00" + kind + "\x00" + id.instance)
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}
