package renderer

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-fx/common"
)

var textureIDs atomic.Uint64

// texture is the backend-independent handle of a texture. Backends allocate storage for it
// lazily and reallocate whenever its version changes.
type texture struct {
	mu *sync.Mutex

	id         uint64
	name       string
	width      int
	height     int
	kind       common.TextureKind
	pixelType  common.PixelType
	colorSpace common.ColorSpace
	faces      int
	version    uint64
	disposed   bool

	// source holds uploaded pixels, written into the storage on every allocation.
	source *image.RGBA

	onDispose []func()
}

// DepthTexture is a depth attachment that passes can sample. A depth texture may be attached to
// a RenderTarget, replacing its internal depth buffer.
type DepthTexture interface {
	common.Texture

	// Stencil reports whether the texture carries a stencil aspect.
	//
	// Returns:
	//   - bool: true for combined depth-stencil textures
	Stencil() bool

	// SetSize resizes the texture. The contents are lost. Same-size calls are ignored.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	SetSize(width, height int)

	// Dispose releases the backend storage of the texture.
	Dispose()

	// Disposed reports whether Dispose was called.
	//
	// Returns:
	//   - bool: true after Dispose
	Disposed() bool
}

var _ DepthTexture = &texture{}

func newTexture(name string, width, height int, kind common.TextureKind) *texture {
	id := textureIDs.Add(1)
	if name == "" {
		name = fmt.Sprintf("texture-%d", id)
	}
	return &texture{
		mu:         &sync.Mutex{},
		id:         id,
		name:       name,
		width:      max(width, 1),
		height:     max(height, 1),
		kind:       kind,
		colorSpace: common.ColorSpaceLinear,
		faces:      1,
	}
}

// NewDepthTexture creates a depth texture, optionally with a stencil aspect.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//   - stencil: whether the texture carries a stencil aspect
//
// Returns:
//   - DepthTexture: the depth texture
func NewDepthTexture(width, height int, stencil bool) DepthTexture {
	kind := common.TextureKindDepth
	if stencil {
		kind = common.TextureKindDepthStencil
	}
	t := newTexture("", width, height, kind)
	t.name = fmt.Sprintf("depth-%d", t.id)
	return t
}

func (t *texture) Name() string {
	return t.name
}

func (t *texture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

func (t *texture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

func (t *texture) Kind() common.TextureKind {
	return t.kind
}

func (t *texture) PixelType() common.PixelType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixelType
}

func (t *texture) ColorSpace() common.ColorSpace {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.colorSpace
}

func (t *texture) Stencil() bool {
	return t.kind == common.TextureKindDepthStencil
}

func (t *texture) SetSize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if t.width == width && t.height == height {
		return
	}
	t.width = width
	t.height = height
	t.version++
}

func (t *texture) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	listeners := t.onDispose
	t.onDispose = nil
	t.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (t *texture) Disposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}

// setFormat changes the pixel type and color space, invalidating the backend storage.
func (t *texture) setFormat(pixelType common.PixelType, colorSpace common.ColorSpace) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pixelType == pixelType && t.colorSpace == colorSpace {
		return
	}
	t.pixelType = pixelType
	t.colorSpace = colorSpace
	t.version++
}

// setFaces sets the number of layers: 1 for 2D textures, 6 for cube maps.
func (t *texture) setFaces(faces int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.faces == faces {
		return
	}
	t.faces = faces
	t.version++
}

// describe returns a consistent copy of the fields backends allocate from.
func (t *texture) describe() textureDesc {
	t.mu.Lock()
	defer t.mu.Unlock()
	return textureDesc{
		width:      t.width,
		height:     t.height,
		kind:       t.kind,
		pixelType:  t.pixelType,
		colorSpace: t.colorSpace,
		faces:      t.faces,
		version:    t.version,
		source:     t.source,
	}
}

// addDisposeListener registers fn to run when the texture is disposed. A disposed texture runs
// fn immediately.
func (t *texture) addDisposeListener(fn func()) {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		fn()
		return
	}
	t.onDispose = append(t.onDispose, fn)
	t.mu.Unlock()
}

// textureDesc is a snapshot of a texture's allocation parameters.
type textureDesc struct {
	width      int
	height     int
	kind       common.TextureKind
	pixelType  common.PixelType
	colorSpace common.ColorSpace
	faces      int
	version    uint64
	source     *image.RGBA
}

// asTexture resolves a common.Texture to the renderer handle, or nil for foreign textures.
func asTexture(t common.Texture) *texture {
	if t == nil {
		return nil
	}
	tex, _ := t.(*texture)
	return tex
}
