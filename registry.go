// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EagerFunc receives already-computed argument values: references arrive
// as the referenced cell's result, ranges as matrices.
type EagerFunc func(ctx *CallContext, args []Value) Value

// LazyFunc receives the unevaluated argument nodes plus, through the call
// context, a callback that evaluates any node on demand. Lazy functions
// can therefore manipulate references (OFFSET, INDIRECT) or short-circuit
// (IF, IFERROR, CHOOSE).
type LazyFunc func(ctx *CallContext, args []Node) Value

// FunctionDefinition describes one registered function. Exactly one of
// Evaluate and EvaluateLazy must be set. Category, Description, Examples
// and Samples feed the UI suggestion layer and are opaque to evaluation.
type FunctionDefinition struct {
	Name        string
	Category    string
	Description map[string]string
	Examples    []string
	Samples     []string

	Evaluate     EagerFunc
	EvaluateLazy LazyFunc

	// AbsorbsErrors marks eager functions that must receive error
	// arguments instead of having the engine propagate them.
	AbsorbsErrors bool
}

// ErrInvalidDefinition is returned when a registered definition is
// malformed.
var ErrInvalidDefinition = errors.New("calc: invalid function definition")

// Registry maps uppercase function names to definitions. The default
// registry is process-wide and populated once before any pass begins;
// pass-scoped registries can be built with NewRegistry for hot-reloading
// hosts.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*FunctionDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*FunctionDefinition)}
}

// Register adds a definition. Names are uppercased; re-registration
// replaces the previous definition.
func (r *Registry) Register(def *FunctionDefinition) error {
	if def == nil || strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if (def.Evaluate == nil) == (def.EvaluateLazy == nil) {
		return fmt.Errorf("%w: %s must set exactly one of Evaluate and EvaluateLazy", ErrInvalidDefinition, def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[strings.ToUpper(def.Name)] = def
	return nil
}

// mustRegister is the builtin-registration helper; definitions are
// programmer-controlled so a failure is a programming error.
func (r *Registry) mustRegister(def *FunctionDefinition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup finds a definition by name, case-insensitively.
func (r *Registry) Lookup(name string) (*FunctionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[strings.ToUpper(name)]
	return def, ok
}

// Names returns the registered function names, unordered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide registry with every built-in
// installed.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerMathFuncs(defaultRegistry)
		registerLookupFuncs(defaultRegistry)
		registerLogicalFuncs(defaultRegistry)
		registerTextFuncs(defaultRegistry)
	})
	return defaultRegistry
}

// RegisterFunction adds a custom definition to the default registry. This
// is the extension point for hosts: call it at startup, before any
// evaluation pass.
func RegisterFunction(def *FunctionDefinition) error {
	return DefaultRegistry().Register(def)
}
