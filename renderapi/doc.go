// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderapi is the scene-builder and render-backend capability
// consumed by the bridge package, together with an in-process
// implementation.
//
// A Transaction bundles a display list, resource updates and dynamic
// property values for one pipeline. Transactions flow through two serial
// stages: the scene builder turns display lists into scenes, the render
// backend swaps scenes in, applies resources and renders frames. Both
// stages process transactions in submission order, so notifications for
// a lower epoch never fire after those for a higher one.
//
//	srv := renderapi.NewServer(ctx, renderapi.WithCompositor(c))
//	defer srv.Close()
//	api := srv.NewClient()
//
//	txn := renderapi.NewTransaction(pipeline)
//	txn.SetDisplayList(epoch, clear, dl)
//	txn.Notify(renderapi.CheckpointSceneBuilt, func() { ... })
//	txn.GenerateFrame()
//	api.SendTransaction(txn)
//	_ = api.WaitFlushed()
package renderapi
