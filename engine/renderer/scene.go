package renderer

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/camera"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// Quad is a screen-space rectangle drawn by Render. Coordinates are in uv space with (0, 0) at the
// top left and (1, 1) at the bottom right. Depth is the window-space depth in [0, 1].
type Quad struct {
	X0, Y0, X1, Y1 float32
	Depth          float32
	Color          common.Color
	Blending       material.Blending
}

// Covers reports whether the pixel center at uv lies inside the quad.
//
// Parameters:
//   - uv: the pixel center in uv space
//
// Returns:
//   - bool: true if the quad covers the pixel
func (q Quad) Covers(uv common.Vec2) bool {
	return uv[0] >= q.X0 && uv[0] < q.X1 && uv[1] >= q.Y0 && uv[1] < q.Y1
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.Mutex

	quads      []Quad
	background *common.Color
}

// Scene is the boundary to the host scene graph. The renderer asks the scene for the quads a
// camera sees and draws them with depth testing, in order.
type Scene interface {
	// Quads returns the geometry visible to cam in draw order.
	//
	// Parameters:
	//   - cam: the viewing camera
	//
	// Returns:
	//   - []Quad: the quads to draw
	Quads(cam camera.Camera) []Quad

	// Add appends quads to the scene.
	Add(quads ...Quad)

	// Background returns the color the target is cleared to before drawing, or nil.
	Background() *common.Color

	// SetBackground sets the background color. Nil disables the background clear.
	SetBackground(c *common.Color)
}

var _ Scene = &scene{}

// NewScene creates a flat scene holding the given quads.
//
// Parameters:
//   - quads: the initial quads
//
// Returns:
//   - Scene: the scene
func NewScene(quads ...Quad) Scene {
	return &scene{
		mu:    &sync.Mutex{},
		quads: slices.Clone(quads),
	}
}

func (s *scene) Quads(camera.Camera) []Quad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.quads)
}

func (s *scene) Add(quads ...Quad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quads = append(s.quads, quads...)
}

func (s *scene) Background() *common.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.background == nil {
		return nil
	}
	c := *s.background
	return &c
}

func (s *scene) SetBackground(c *common.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.background = nil
		return
	}
	v := *c
	s.background = &v
}
