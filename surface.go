package main

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r3"

	"elemark/render"
)

// matSurface implements render.Surface by drawing a 2D debug projection onto
// the current frame Mat, the way the river camera drew its overlays. It
// stands in for the GPU surface when running headless or in a desktop window;
// the node tree neither knows nor cares.
type matSurface struct {
	frame        *gocv.Mat
	viewW, viewH int
}

var _ render.Surface = (*matSurface)(nil)

func newMatSurface(viewW, viewH int) *matSurface {
	return &matSurface{viewW: viewW, viewH: viewH}
}

// SetFrame points the surface at the Mat for the frame being drawn. Called
// once per frame before traversal.
func (s *matSurface) SetFrame(m *gocv.Mat) {
	s.frame = m
}

// DrawVideoBackground implements render.Surface. The Mat already holds the
// camera image, so the background layer costs nothing here.
func (s *matSurface) DrawVideoBackground() {}

// DrawPoints implements render.Surface: each world point is projected with
// the same pinhole model the flat world uses and drawn as a dot.
func (s *matSurface) DrawPoints(points []r3.Vec, col [4]float32) {
	if s.frame == nil {
		return
	}
	c := toRGBA(col)
	for _, p := range points {
		if pt, ok := s.project(p); ok {
			gocv.Circle(s.frame, pt, 1, c, -1)
		}
	}
}

// DrawMesh implements render.Surface: the marker mesh becomes a filled
// circle at the mvp-projected anchor origin, tagged with the mesh name.
func (s *matSurface) DrawMesh(mesh, texture string, mvp [16]float32, col [4]float32) {
	if s.frame == nil {
		return
	}
	// Apply mvp to the mesh origin (0,0,0,1).
	x, y, z, w := mvp[12], mvp[13], mvp[14], mvp[15]
	if w <= 0 || z > w {
		return
	}
	pt := image.Pt(
		int((float64(x/w)+1)/2*float64(s.viewW)),
		int((1-float64(y/w))/2*float64(s.viewH)),
	)
	c := toRGBA(col)
	gocv.Circle(s.frame, pt, 14, c, -1)
	gocv.Circle(s.frame, pt, 14, color.RGBA{255, 255, 255, 255}, 2)

	name := strings.TrimSuffix(filepath.Base(mesh), filepath.Ext(mesh))
	name = strings.TrimPrefix(name, "marker_")
	gocv.PutText(s.frame, name, pt.Add(image.Pt(18, 5)), gocv.FontHersheySimplex, 0.5, c, 2)
}

// project maps a camera-space point to screen pixels using the flat-world
// pinhole (60 degree vertical FOV).
func (s *matSurface) project(p r3.Vec) (image.Point, bool) {
	if p.Z >= -0.1 {
		return image.Point{}, false
	}
	f := float64(s.viewH) / 2 / 0.5773502691896257 // tan(30 deg)
	x := p.X/-p.Z*f + float64(s.viewW)/2
	y := -p.Y/-p.Z*f + float64(s.viewH)/2
	if x < 0 || x >= float64(s.viewW) || y < 0 || y >= float64(s.viewH) {
		return image.Point{}, false
	}
	return image.Pt(int(x), int(y)), true
}

func toRGBA(c [4]float32) color.RGBA {
	return color.RGBA{
		R: uint8(c[0] * 255),
		G: uint8(c[1] * 255),
		B: uint8(c[2] * 255),
		A: uint8(c[3] * 255),
	}
}
