// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Registers the Vulkan backend with hal.
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/compositor"
)

// ErrNoAdapter is returned when no GPU adapter can be opened.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter")

// instanceFactory is the part of a hal backend used to open a device.
type instanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// device is an opened adapter together with the instance that owns it.
type device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	name string
	kind gputypes.DeviceType
}

// openDevice opens the preferred adapter of the registered hal backend.
func openDevice(backend gputypes.Backend) (*device, error) {
	api, ok := hal.GetBackend(backend)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not available", ErrNoAdapter, backend)
	}
	return openWith(api)
}

// openWith opens a device through api, preferring discrete and integrated
// GPUs over software adapters.
func openWith(api instanceFactory) (*device, error) {
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoAdapter, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		t := adapters[i].Info.DeviceType
		if t == gputypes.DeviceTypeDiscreteGPU || t == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoAdapter, err)
	}

	d := &device{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
		name:     selected.Info.Name,
		kind:     selected.Info.DeviceType,
	}
	compositor.Logger().Info("wgpu: adapter opened", "name", d.name, "type", d.kind)
	return d, nil
}

// release destroys the device and then the instance.
func (d *device) release() {
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}
