// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sort"
	"sync"
)

// BackendFactory creates a compositor drawing onto a width x height screen.
type BackendFactory func(width, height int, opts ...Option) (Compositor, error)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
)

func init() {
	Register("software", func(width, height int, opts ...Option) (Compositor, error) {
		return NewSoftwareCompositor(width, height, opts...), nil
	})
}

// Register makes a compositor backend available by name. It is typically
// called from init in backend packages, following the database/sql driver
// pattern:
//
//	func init() {
//	    render.Register("wgpu", New)
//	}
//
// Register panics if factory is nil or the name is already taken.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("render: Register factory is nil")
	}
	if _, dup := backends[name]; dup {
		panic("render: Register called twice for " + name)
	}
	backends[name] = factory
}

// Unregister removes a backend. Unknown names are ignored.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// NewBackend creates a compositor with the named backend.
//
//	import _ "github.com/gogpu/compositor/backend/wgpu"
//
//	c, err := render.NewBackend("wgpu", 800, 600)
func NewBackend(name string, width, height int, opts ...Option) (Compositor, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("render: unknown backend %q (forgotten import?)", name)
	}
	return factory(width, height, opts...)
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend with the given name exists.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}
