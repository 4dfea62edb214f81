// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderapi

import (
	"encoding/binary"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
)

// ItemKind is the kind of a display item.
type ItemKind uint8

const (
	// ItemRect fills Bounds with Color.
	ItemRect ItemKind = iota + 1
	// ItemImage draws the image resource Image stretched over Bounds.
	ItemImage
)

var itemKindNames = [...]string{
	ItemRect:  "Rect",
	ItemImage: "Image",
}

func (k ItemKind) String() string {
	if int(k) < len(itemKindNames) && itemKindNames[k] != "" {
		return itemKindNames[k]
	}
	return "Unknown"
}

// DisplayItem is one drawing command of a display list.
type DisplayItem struct {
	Kind   ItemKind
	Bounds image.Rectangle
	Color  gputypes.Color
	Image  ImageKey
	// Binding names a PropertyValue that overrides the item's opacity or
	// transform. Zero means unbound.
	Binding uint64
}

// DisplayListDescriptor travels next to the display list bytes.
type DisplayListDescriptor struct {
	BuilderStart  time.Time
	BuilderFinish time.Time
	Items         int
}

// DisplayList is a serialized list of display items.
type DisplayList struct {
	Descriptor DisplayListDescriptor
	Data       []byte
}

// wireItem is the fixed-size little-endian encoding of a DisplayItem.
type wireItem struct {
	Kind                   uint8
	_                      [3]uint8
	MinX, MinY, MaxX, MaxY int32
	R, G, B, A             float32
	ImageNamespace         uint32
	ImageHandle            uint32
	Binding                uint64
}

var wireItemSize = binary.Size(wireItem{})

// EncodeDisplayList serializes items.
func EncodeDisplayList(items []DisplayItem) DisplayList {
	start := time.Now()
	data := make([]byte, 0, len(items)*wireItemSize)
	for _, it := range items {
		w := wireItem{
			Kind:           uint8(it.Kind),
			MinX:           int32(it.Bounds.Min.X),
			MinY:           int32(it.Bounds.Min.Y),
			MaxX:           int32(it.Bounds.Max.X),
			MaxY:           int32(it.Bounds.Max.Y),
			R:              float32(it.Color.R),
			G:              float32(it.Color.G),
			B:              float32(it.Color.B),
			A:              float32(it.Color.A),
			ImageNamespace: uint32(it.Image.Namespace),
			ImageHandle:    it.Image.Handle,
			Binding:        it.Binding,
		}
		// binary.Append only fails for types without a fixed size.
		data, _ = binary.Append(data, binary.LittleEndian, w)
	}
	return DisplayList{
		Descriptor: DisplayListDescriptor{
			BuilderStart:  start,
			BuilderFinish: time.Now(),
			Items:         len(items),
		},
		Data: data,
	}
}

// Items decodes the display list. It fails with ErrInvalidDisplayList
// when the bytes do not hold whole items or disagree with the descriptor.
func (dl DisplayList) Items() ([]DisplayItem, error) {
	if len(dl.Data)%wireItemSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidDisplayList, len(dl.Data), wireItemSize)
	}
	n := len(dl.Data) / wireItemSize
	if n != dl.Descriptor.Items {
		return nil, fmt.Errorf("%w: %d items, descriptor says %d", ErrInvalidDisplayList, n, dl.Descriptor.Items)
	}
	items := make([]DisplayItem, 0, n)
	for off := 0; off < len(dl.Data); off += wireItemSize {
		var w wireItem
		if _, err := binary.Decode(dl.Data[off:off+wireItemSize], binary.LittleEndian, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDisplayList, err)
		}
		kind := ItemKind(w.Kind)
		if kind != ItemRect && kind != ItemImage {
			return nil, fmt.Errorf("%w: item %d has kind %d", ErrInvalidDisplayList, len(items), w.Kind)
		}
		items = append(items, DisplayItem{
			Kind:    kind,
			Bounds:  image.Rect(int(w.MinX), int(w.MinY), int(w.MaxX), int(w.MaxY)),
			Color:   gputypes.Color{R: float64(w.R), G: float64(w.G), B: float64(w.B), A: float64(w.A)},
			Image:   ImageKey{Namespace: IdNamespace(w.ImageNamespace), Handle: w.ImageHandle},
			Binding: w.Binding,
		})
	}
	return items, nil
}
