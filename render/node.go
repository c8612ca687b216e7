// Package render is the composable draw pipeline: a shallow tree of nodes
// traversed uniformly every frame, drawing through an opaque GPU surface.
package render

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"elemark/anchor"
)

// Surface is the opaque GPU drawing boundary. Shader compilation and asset
// loading live behind it; nodes only say what to draw with which named
// uniforms.
type Surface interface {
	// DrawVideoBackground draws the current camera image full-screen.
	DrawVideoBackground()
	// DrawPoints draws a world-space point set with the given color uniform.
	DrawPoints(points []r3.Vec, color [4]float32)
	// DrawMesh draws a named mesh/texture pair with model-view-projection
	// and color uniforms.
	DrawMesh(mesh, texture string, mvp [16]float32, color [4]float32)
}

// FrameContext is the per-frame input to a draw traversal: camera matrices,
// the anchor snapshot taken at frame start, and the world point cloud.
type FrameContext struct {
	View       [16]float32
	Projection [16]float32
	Anchors    []anchor.Anchor
	PointCloud []r3.Vec
	FrameTime  time.Time
}

// Node is one draw layer. Composite and leaf nodes are indistinguishable to
// callers, which is what lets new layers be added without touching traversal
// logic.
type Node interface {
	Init(s Surface) error
	Draw(s Surface, fc *FrameContext) error
	Release()
}

// debugMsgFunc is set by the main package to route debug output through the
// unified logger.
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide the debug logger.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Composite owns an ordered child list and forwards init, draw and release
// to every child in list order. Draw order equals list order, which is what
// keeps depth compositing correct. The child list is mutated only during
// setup, never during traversal.
type Composite struct {
	children []Node
}

func NewComposite(children ...Node) *Composite {
	return &Composite{children: children}
}

// Add appends a child. Setup-time only.
func (c *Composite) Add(n Node) {
	c.children = append(c.children, n)
}

// Init forwards to every child in order, stopping at the first failure:
// a layer that cannot set up makes the whole tree unusable.
func (c *Composite) Init(s Surface) error {
	for _, child := range c.children {
		if err := child.Init(s); err != nil {
			return fmt.Errorf("init render node: %w", err)
		}
	}
	return nil
}

// Draw forwards to every child in order. A failing child is logged and its
// siblings still draw: one broken layer must not blank the frame.
func (c *Composite) Draw(s Surface, fc *FrameContext) error {
	for _, child := range c.children {
		drawChild(child, s, fc)
	}
	return nil
}

func drawChild(n Node, s Surface, fc *FrameContext) {
	defer func() {
		if r := recover(); r != nil {
			debugMsg("RENDER", fmt.Sprintf("draw panic: %v", r))
		}
	}()
	if err := n.Draw(s, fc); err != nil {
		debugMsg("RENDER", fmt.Sprintf("draw error: %v", err))
	}
}

// Release forwards to every child in order, then clears the child list.
func (c *Composite) Release() {
	for _, child := range c.children {
		child.Release()
	}
	c.children = nil
}
