// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bridge translates content transactions into render API
// transactions for one pipeline.
//
// A Bridge owns the pipeline's epoch counter, the queue of pending
// transaction ids waiting to be reflected on screen, the resources the
// content registered, compositor animations and async image pipelines.
// The root bridge of a window also generates frames when its Scheduler
// fires; other bridges attach to it with WithRoot and share its scheduler,
// animation storage and async images.
//
// Notifications from the render API arrive on its goroutines. They are
// queued and handled while the bridge lock is held, so handlers never run
// concurrently with bridge operations and never block the render API.
//
// Errors wrapping ErrProtocol mean the content sent something that cannot
// be honored; the caller is expected to drop the content connection.
// Stale namespaces and unknown deletions are not errors.
package bridge
