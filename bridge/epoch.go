// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bridge

import (
	"math"

	"github.com/gogpu/compositor/renderapi"
)

// epochCounter hands out strictly increasing epochs starting at 1.
type epochCounter struct {
	cur renderapi.Epoch
}

func (e *epochCounter) current() renderapi.Epoch { return e.cur }

// next advances the counter. Wrapping would break every ordering the
// bridge relies on, so it panics instead.
func (e *epochCounter) next() renderapi.Epoch {
	if e.cur == math.MaxUint32 {
		panic("bridge: epoch counter overflow")
	}
	e.cur++
	return e.cur
}
