// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"testing"
)

func TestNewTexture(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		data    int
		wantErr bool
	}{
		{"valid", 2, 2, 16, false},
		{"zero width", 0, 2, 0, true},
		{"short data", 2, 2, 15, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTexture(tt.w, tt.h, make([]byte, tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTexture() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTextureUpdateRegion(t *testing.T) {
	tex, err := NewTexture(4, 4, make([]byte, 64))
	if err != nil {
		t.Fatal(err)
	}
	patch := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := tex.UpdateRegion(1, 2, 2, 1, patch); err != nil {
		t.Fatalf("UpdateRegion: %v", err)
	}
	if got := tex.Image().RGBAAt(2, 2); got.R != 5 || got.A != 8 {
		t.Errorf("pixel(2,2) = %v, want {5 6 7 8}", got)
	}
	if err := tex.UpdateRegion(3, 3, 2, 2, make([]byte, 16)); err == nil {
		t.Error("UpdateRegion outside bounds should fail")
	}

	tex.Destroy()
	if err := tex.UpdateData(make([]byte, 64)); !errors.Is(err, ErrTextureDestroyed) {
		t.Errorf("UpdateData after Destroy = %v, want ErrTextureDestroyed", err)
	}
}

func TestTextureCreator(t *testing.T) {
	tex, err := TextureCreator{}.NewTextureFromRGBA(3, 1, make([]byte, 12))
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width() != 3 || tex.Height() != 1 {
		t.Errorf("size = %dx%d, want 3x1", tex.Width(), tex.Height())
	}
}
