// Package compositor is the root of a retained-mode layer compositor and
// the bridge that feeds an asynchronous scene renderer.
//
// # Overview
//
// A page is described as a tree of layers (package layers). Each frame the
// frame manager (package composite) computes effective transforms and
// visible regions, culls occluded content, renders containers that need an
// intermediate surface into offscreen targets and finally draws everything
// onto the screen through a [render.Compositor] backend. Two backends are
// provided: a software compositor built on golang.org/x/image/draw and a
// GPU compositor built on github.com/gogpu/wgpu (package backend/wgpu).
//
// Content that is rendered by an external scene renderer goes through a
// bridge (package bridge). The bridge tags every update with a strictly
// increasing epoch, forwards display lists and resource updates to the
// render API (package renderapi) and reports back to the content side once
// the epoch carrying a transaction has actually been rendered. GPU objects
// referenced by older epochs are kept alive until then.
//
// # Quick Start
//
//	sw := render.NewSoftwareCompositor(800, 600)
//	mgr := composite.NewManager(sw)
//
//	root := layers.NewContainer(1)
//	leaf := layers.NewLeaf(2)
//	leaf.SetContent(layers.SolidContent(image.Rect(0, 0, 100, 100), red))
//	root.AppendChild(leaf)
//	mgr.SetRoot(root)
//
//	if err := mgr.BeginTransaction(); err != nil {
//	    return err
//	}
//	mgr.EndTransaction(0)
//
// # Logging
//
// All packages log through [Logger], which is silent until [SetLogger] is
// called.
package compositor

// Version is the module version logged by cmd/compdemo.
const Version = "0.4.0"
