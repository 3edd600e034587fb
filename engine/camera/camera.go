package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
)

// Projection identifies how a camera maps view space to clip space.
type Projection int

const (
	// ProjectionPerspective is a standard perspective frustum.
	ProjectionPerspective Projection = iota

	// ProjectionOrthographic is a parallel projection whose depth is already linear.
	ProjectionOrthographic
)

type cameraImpl struct {
	mu *sync.Mutex

	projection Projection

	fov    float32
	aspect float32
	near   float32
	far    float32
}

// Camera defines the depth-related view parameters consumed by depth-aware effects.
// Scene traversal and transforms belong to the host scene graph; the post-processing
// pipeline only needs the clip planes, the projection kind and the aspect ratio.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Perspective reports whether the camera uses a perspective projection.
	//
	// Returns:
	//   - bool: true for perspective cameras
	Perspective() bool

	// Projection returns the projection kind.
	//
	// Returns:
	//   - Projection: the projection kind
	Projection() Projection

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio. Composers update it on resize.
	//
	// Parameters:
	//   - aspect: width divided by height
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)

	// LinearizeDepth converts a depth buffer value in [0, 1] to a normalized linear depth in [0, 1]
	// between the near and far planes.
	//
	// Parameters:
	//   - depth: the stored depth value
	//
	// Returns:
	//   - float32: the linear depth
	LinearizeDepth(depth float32) float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new perspective Camera with a 45 degree field of view and
// clip planes at 0.1 and 100.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    45.0 * (math.Pi / 180.0), // radians
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Perspective() bool {
	return c.Projection() == ProjectionPerspective
}

func (c *cameraImpl) Projection() Projection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
}

func (c *cameraImpl) LinearizeDepth(depth float32) float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.LinearizeDepth(depth, c.near, c.far, c.projection == ProjectionPerspective)
}
