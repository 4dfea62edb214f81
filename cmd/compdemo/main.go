// Command compdemo composites a small layer tree and renders a display list
// through the scene bridge, writing both results as PNG files.
//
// Usage:
//
//	compdemo -backend software -output layers.png -scene-output scene.png
//	compdemo -backend wgpu -frames 30 -debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor"
	_ "github.com/gogpu/compositor/backend/wgpu"
	"github.com/gogpu/compositor/bridge"
	"github.com/gogpu/compositor/composite"
	"github.com/gogpu/compositor/geom"
	"github.com/gogpu/compositor/layers"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/renderapi"
)

func main() {
	var (
		width       = flag.Int("width", 640, "screen width")
		height      = flag.Int("height", 480, "screen height")
		backend     = flag.String("backend", "software", fmt.Sprintf("compositor backend %v", render.Backends()))
		frames      = flag.Int("frames", 10, "number of animated frames to composite")
		output      = flag.String("output", "layers.png", "layer tree output file")
		sceneOutput = flag.String("scene-output", "scene.png", "scene bridge output file; empty skips the bridge")
		debug       = flag.Bool("debug", false, "draw layer borders and the frame counter")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	compositor.Logger().Info("compdemo", "version", compositor.Version, "backend", *backend)
	if err := run(*backend, *width, *height, *frames, *output, *sceneOutput, *debug); err != nil {
		slog.Error("compdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(backend string, width, height, frames int, output, sceneOutput string, debug bool) error {
	bounds := image.Rect(0, 0, width, height)
	c, err := render.NewBackend(backend, width, height)
	if err != nil {
		return err
	}
	if cl, ok := c.(interface{ Close() error }); ok {
		defer func() { _ = cl.Close() }()
	}

	if err := compositeLayers(c, bounds, frames, debug); err != nil {
		return err
	}
	if err := writeScreen(c, bounds, output); err != nil {
		return err
	}
	if sceneOutput == "" {
		return nil
	}
	return renderScene(backend, bounds, sceneOutput)
}

// compositeLayers builds a tree with an opaque background, a translucent
// group that needs an intermediate surface and a moving leaf, then
// composites it frames times.
func compositeLayers(c render.Compositor, bounds image.Rectangle, frames int, debug bool) error {
	mgr := composite.NewManager(c,
		composite.WithBounds(bounds),
		composite.WithDebug(composite.DebugOptions{DrawLayerBorders: debug, DrawFrameCounter: debug}),
		composite.WithFrameListener(func(s composite.FrameStats) {
			compositor.Logger().Debug("frame", "n", s.Frame, "actual", s.Actual, "duration", s.Duration)
		}),
	)
	defer mgr.Destroy()

	root := layers.NewContainer(1)
	background := layers.NewLeaf(2)
	background.SetContent(layers.SolidContent(bounds, gputypes.Color{R: 0.12, G: 0.14, B: 0.2, A: 1}))
	background.Flags |= layers.ContentOpaque

	group := layers.NewContainer(3)
	ga := layers.DefaultAttributes()
	ga.Opacity = 0.6
	ga.Transform = geom.Translation(float64(bounds.Dx())/8, float64(bounds.Dy())/8, 0)
	group.SetAttributes(ga)
	left := layers.NewLeaf(4)
	left.SetContent(layers.SolidContent(image.Rect(0, 0, bounds.Dx()/3, bounds.Dy()/3), gputypes.Color{R: 0.9, G: 0.3, B: 0.2, A: 1}))
	right := layers.NewLeaf(5)
	ra := layers.DefaultAttributes()
	ra.Transform = geom.Translation(float64(bounds.Dx())/6, float64(bounds.Dy())/6, 0)
	right.SetAttributes(ra)
	right.SetContent(layers.SolidContent(image.Rect(0, 0, bounds.Dx()/3, bounds.Dy()/3), gputypes.Color{R: 0.2, G: 0.5, B: 0.9, A: 1}))

	mover := layers.NewLeaf(6)
	mover.SetContent(layers.ImageContent(image.Rect(0, 0, 64, 64), gradient(64)))

	for _, step := range []struct{ parent, child *layers.Layer }{
		{root, background}, {group, left}, {group, right}, {root, group}, {root, mover},
	} {
		if err := step.parent.AppendChild(step.child); err != nil {
			return err
		}
	}
	mgr.SetRoot(root)

	for i := range max(frames, 1) {
		t := float64(i) / float64(max(frames-1, 1))
		ma := layers.DefaultAttributes()
		ma.Transform = geom.Translation(
			t*float64(bounds.Dx()-64),
			float64(bounds.Dy())*0.7+20*math.Sin(t*2*math.Pi),
			0,
		)
		mover.SetAttributes(ma)

		if err := mgr.BeginTransaction(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		mgr.EndTransaction(0)
	}
	last := mgr.LastFrame()
	compositor.Logger().Info("composited layer tree", "frames", last.Frame, "actual", last.Actual)
	return nil
}

// renderScene drives a bridge against an in-process render API and writes
// what the scene renderer drew.
func renderScene(backend string, bounds image.Rectangle, output string) error {
	sc, err := render.NewBackend(backend, bounds.Dx(), bounds.Dy())
	if err != nil {
		return err
	}
	if cl, ok := sc.(interface{ Close() error }); ok {
		defer func() { _ = cl.Close() }()
	}
	srv := renderapi.NewServer(context.Background(), renderapi.WithCompositor(sc))
	defer func() { _ = srv.Close() }()

	api := srv.NewClient()
	ns := api.Namespace()
	const process = 1
	// Frames are generated by FlushRendering only, so nothing draws while
	// the screen is read back.
	b := bridge.New(api, renderapi.PipelineID{Namespace: ns, Handle: 1},
		bridge.WithProcessID(process), bridge.WithScheduler(bridge.NewManualScheduler()))
	defer b.Destroy(bridge.NormalShutdown)

	key := renderapi.ImageKey{Namespace: ns, Handle: 1}
	pix := gradient(32)
	fade := bridge.AnimationID(process, 1)
	dl := renderapi.EncodeDisplayList([]renderapi.DisplayItem{
		{Kind: renderapi.ItemRect, Bounds: bounds, Color: gputypes.Color{R: 0.95, G: 0.95, B: 0.92, A: 1}},
		{Kind: renderapi.ItemRect, Bounds: image.Rect(40, 40, 200, 160), Color: gputypes.Color{R: 0.1, G: 0.6, B: 0.3, A: 1}, Binding: fade},
		{Kind: renderapi.ItemImage, Bounds: image.Rect(240, 40, 400, 200), Image: key},
	})
	err = b.SetDisplayList(bridge.SceneUpdate{
		ID:            1,
		Namespace:     ns,
		ObserverEpoch: 1,
		DisplayList:   dl,
		Viewport:      bounds,
		Resources: []bridge.ResourceOp{bridge.AddImage{
			Key:        key,
			Descriptor: renderapi.ImageDescriptor{Width: 32, Height: 32, Format: gputypes.TextureFormatRGBA8Unorm},
			Data:       pix.Pix,
		}},
		Commands: []bridge.Command{bridge.AddAnimations{Animations: []bridge.Animation{{
			ID:        fade,
			Property:  renderapi.PropertyOpacity,
			Keyframes: []bridge.Keyframe{{Offset: 0, Opacity: 1}, {Offset: 1, Opacity: 0.3}},
			Duration:  200 * time.Millisecond,
		}}}},
		TxnStart: time.Now(),
	})
	if err != nil {
		return err
	}
	if err := b.FlushRendering(true); err != nil {
		return err
	}
	compositor.Logger().Info("scene rendered",
		"epoch", b.LastRenderedEpoch(), "frames", b.FramesGenerated(), "stats", srv.Stats())
	return writeScreen(sc, bounds, output)
}

func writeScreen(c render.Compositor, bounds image.Rectangle, path string) error {
	rb, ok := c.(render.Readback)
	if !ok {
		return errors.New("compdemo: backend cannot read pixels back")
	}
	img, err := rb.ReadPixels(bounds)
	if err != nil {
		return err
	}
	return writePNG(img, path)
}

func writePNG(img image.Image, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	compositor.Logger().Info("wrote image", "path", path, "size", img.Bounds().Size())
	return nil
}

// gradient returns an opaque size x size diagonal gradient.
func gradient(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(255 * x / size)
			img.Pix[i+1] = uint8(255 * y / size)
			img.Pix[i+2] = 200
			img.Pix[i+3] = 255
		}
	}
	return img
}
