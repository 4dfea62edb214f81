// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package composite

import (
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/compositor/layers"
)

// DumpTree writes one line per layer below root, indented by depth.
func DumpTree(w io.Writer, root *layers.Layer) error {
	if root == nil {
		_, err := io.WriteString(w, "(no root)\n")
		return err
	}
	return dumpLayer(w, root, 0)
}

func dumpLayer(w io.Writer, l *layers.Layer, depth int) error {
	var flags []string
	if l.UseIntermediateSurface() {
		flags = append(flags, "intermediate")
	}
	if l.NeedsSurfaceCopy() {
		flags = append(flags, "copy")
	}
	if l.Flags&layers.ContentOpaque != 0 {
		flags = append(flags, "opaque")
	}
	if l.Composited() {
		flags = append(flags, "hwc")
	}
	if l.Mask() != nil {
		flags = append(flags, fmt.Sprintf("mask=%d", l.Mask().ID()))
	}
	_, err := fmt.Fprintf(w, "%s%s %d opacity=%.3g visible=%v [%s]\n",
		strings.Repeat("  ", depth), l.Kind(), l.ID(), l.EffectiveOpacity(),
		l.EffectiveVisibleRegion(), strings.Join(flags, " "))
	if err != nil {
		return err
	}
	for _, c := range l.Children() {
		if err := dumpLayer(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
