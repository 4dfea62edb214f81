// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestRegistrySoftware(t *testing.T) {
	if !IsRegistered("software") {
		t.Fatal("software backend should be registered")
	}
	c, err := NewBackend("software", 64, 32, WithMaxTextureSize(128))
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	sw, ok := c.(*SoftwareCompositor)
	if !ok {
		t.Fatalf("NewBackend() = %T, want *SoftwareCompositor", c)
	}
	if got := sw.Screen().Bounds().Size(); got.X != 64 || got.Y != 32 {
		t.Errorf("screen size = %v, want 64x32", got)
	}
	if sw.MaxTextureSize() != 128 {
		t.Errorf("MaxTextureSize() = %d, want 128", sw.MaxTextureSize())
	}
}

func TestRegistryRegister(t *testing.T) {
	errFake := errors.New("fake")
	Register("test-fake", func(int, int, ...Option) (Compositor, error) { return nil, errFake })
	defer Unregister("test-fake")

	if !slices.Contains(Backends(), "test-fake") {
		t.Errorf("Backends() = %v, missing test-fake", Backends())
	}
	if _, err := NewBackend("test-fake", 1, 1); !errors.Is(err, errFake) {
		t.Errorf("NewBackend() error = %v, want %v", err, errFake)
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	Register("test-fake", func(int, int, ...Option) (Compositor, error) { return nil, nil })
}

func TestRegistryUnknown(t *testing.T) {
	_, err := NewBackend("nope", 1, 1)
	if err == nil || !strings.Contains(err.Error(), "forgotten import") {
		t.Errorf("NewBackend() error = %v, want unknown backend hint", err)
	}
	if IsRegistered("nope") {
		t.Error("IsRegistered(nope) = true")
	}
}
