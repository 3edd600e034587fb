package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/chewxy/math32"
)

// cpuImage is the color storage of a texture: one linear float plane per face.
type cpuImage struct {
	desc  textureDesc
	faces [][]common.Color
}

// cpuDepth is the depth-stencil storage of a target or depth texture.
type cpuDepth struct {
	width    int
	height   int
	hasDepth bool
	depth    []float32
	stencil  []uint8
	version  uint64
}

type headlessRendererBackendImpl struct {
	mu *sync.Mutex

	images       map[*texture]*cpuImage
	depths       map[*texture]*cpuDepth
	targetDepths map[*renderTarget]*cpuDepth

	screen      *cpuImage
	screenDepth *cpuDepth
	screenSpace common.ColorSpace
	presented   int

	// released collects textures disposed since the last call. It has its own lock because
	// dispose listeners may run while mu is held.
	releaseMu *sync.Mutex
	released  []*texture

	workers int
	pool    func() worker.DynamicWorkerPool
}

type headlessRendererBackend interface {
	RendererBackend
	material.TextureSampler

	// Presented returns the number of Present calls.
	Presented() int

	// SetOutputColorSpace sets the encoding of the screen.
	SetOutputColorSpace(cs common.ColorSpace)
}

var _ headlessRendererBackend = &headlessRendererBackendImpl{}

func newHeadlessRendererBackend() headlessRendererBackend {
	return &headlessRendererBackendImpl{
		mu:           &sync.Mutex{},
		images:       make(map[*texture]*cpuImage),
		depths:       make(map[*texture]*cpuDepth),
		targetDepths: make(map[*renderTarget]*cpuDepth),
		screenSpace:  common.ColorSpaceSRGB,
		releaseMu:    &sync.Mutex{},
		workers:      max(runtime.GOMAXPROCS(0), 1),
		pool:         rowPool,
	}
}

func (b *headlessRendererBackendImpl) Capabilities() Capabilities {
	return Capabilities{
		MaxSamples:     int(MSAA16x),
		FloatTextures:  true,
		DepthTextures:  true,
		MaxTextureSize: 8192,
	}
}

func (b *headlessRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	width, height = max(width, 1), max(height, 1)
	if b.screen != nil && b.screen.desc.width == width && b.screen.desc.height == height {
		return
	}
	b.screen = newCPUImage(textureDesc{
		width:      width,
		height:     height,
		kind:       common.TextureKindColor,
		pixelType:  common.PixelTypeUnsignedByte,
		colorSpace: b.screenSpace,
		faces:      1,
	})
	b.screenDepth = newCPUDepth(width, height, true, true, 0)
}

func (b *headlessRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *headlessRendererBackendImpl) SetOutputColorSpace(cs common.ColorSpace) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.screenSpace = cs
	if b.screen != nil {
		b.screen.desc.colorSpace = cs
	}
}

func (b *headlessRendererBackendImpl) Presented() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presented
}

func (b *headlessRendererBackendImpl) Clear(dst destination, op clearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	img, face, err := b.colorStorage(dst)
	if err != nil {
		return err
	}
	if op.color != nil {
		c := img.store(*op.color)
		plane := img.faces[face]
		for i := range plane {
			plane[i] = c
		}
	}
	ds := b.depthStorage(dst)
	if ds == nil {
		return nil
	}
	if op.depth != nil && ds.hasDepth {
		for i := range ds.depth {
			ds.depth[i] = *op.depth
		}
	}
	if op.stencil != nil && ds.stencil != nil {
		wm := uint8(op.stencilWriteMask)
		v := uint8(*op.stencil)
		for i, s := range ds.stencil {
			ds.stencil[i] = (s &^ wm) | (v & wm)
		}
	}
	return nil
}

func (b *headlessRendererBackendImpl) DrawFullscreen(dst destination, m material.Material, ds drawState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	img, face, err := b.colorStorage(dst)
	if err != nil {
		return err
	}
	depth := b.depthStorage(dst)

	// Allocate every sampled texture up front so kernels only read the storage maps.
	for _, u := range m.Uniforms() {
		if t := asTexture(u.Texture()); t != nil {
			b.resolve(t)
		}
	}

	kernel := m.Kernel()
	if kernel == nil {
		common.WarnOnce(common.WarnKey("headless-kernel", m.Name()),
			"material has no CPU kernel, drawing a pass-through copy", "material", m.Name())
		kernel = func(ctx *material.FragmentContext) common.Color {
			return ctx.Input(ctx.UV)
		}
	}

	w, h := img.desc.width, img.desc.height
	base := material.NewFragmentContext(m, material.FrameFor(m, w, h), b)
	colors := make([]common.Color, w*h)
	b.parallelRows(h, func(y0, y1 int) {
		ctx := *base
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				ctx.X, ctx.Y = x, y
				ctx.UV = common.Vec2{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)}
				colors[y*w+x] = kernel(&ctx)
			}
		}
	})

	b.parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				b.fragment(img, face, depth, y*w+x, colors[y*w+x], 0, ds, ds.blending)
			}
		}
	})
	return nil
}

func (b *headlessRendererBackendImpl) DrawQuads(dst destination, quads []Quad, ds drawState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	img, face, err := b.colorStorage(dst)
	if err != nil {
		return err
	}
	depth := b.depthStorage(dst)
	w, h := img.desc.width, img.desc.height
	for _, q := range quads {
		x0 := max(int(math32.Floor(q.X0*float32(w))), 0)
		x1 := min(int(math32.Ceil(q.X1*float32(w))), w)
		y0 := max(int(math32.Floor(q.Y0*float32(h))), 0)
		y1 := min(int(math32.Ceil(q.Y1*float32(h))), h)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				uv := common.Vec2{(float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)}
				if !q.Covers(uv) {
					continue
				}
				b.fragment(img, face, depth, y*w+x, q.Color, q.Depth, ds, q.Blending)
			}
		}
	}
	return nil
}

func (b *headlessRendererBackendImpl) ReadPixels(dst destination) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	img, face, err := b.colorStorage(dst)
	if err != nil {
		return nil, err
	}
	w, h := img.desc.width, img.desc.height
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range img.faces[face] {
		if img.desc.colorSpace == common.ColorSpaceSRGB {
			c = common.LinearToSRGB(c)
		}
		n := c.NRGBA()
		out.Pix[i*4+0] = n.R
		out.Pix[i*4+1] = n.G
		out.Pix[i*4+2] = n.B
		out.Pix[i*4+3] = n.A
	}
	return out, nil
}

func (b *headlessRendererBackendImpl) ReadDepth(dst destination) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	ds := b.depthStorage(dst)
	if ds == nil || !ds.hasDepth {
		return nil, fmt.Errorf("renderer: %s has no depth buffer", dst.name())
	}
	return append([]float32(nil), ds.depth...), nil
}

func (b *headlessRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presented++
	return nil
}

func (b *headlessRendererBackendImpl) ReleaseResources() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.images)
	clear(b.depths)
	clear(b.targetDepths)
	if b.screen != nil {
		b.screen = newCPUImage(b.screen.desc)
		b.screenDepth = newCPUDepth(b.screen.desc.width, b.screen.desc.height, true, true, 0)
	}
}

func (b *headlessRendererBackendImpl) Release() {
	b.ReleaseResources()
}

// Sample implements material.TextureSampler with bilinear clamp-to-edge filtering.
func (b *headlessRendererBackendImpl) Sample(tex common.Texture, uv common.Vec2) common.Color {
	t := asTexture(tex)
	if t == nil {
		return common.Transparent
	}
	if t.kind != common.TextureKindColor {
		d := b.Depth(tex, uv)
		return common.Color{d, d, d, 1}
	}
	img := b.images[t]
	if img == nil {
		return common.Transparent
	}
	w, h := img.desc.width, img.desc.height
	fx := uv[0]*float32(w) - 0.5
	fy := uv[1]*float32(h) - 0.5
	x0, y0 := int(math32.Floor(fx)), int(math32.Floor(fy))
	tx, ty := fx-float32(x0), fy-float32(y0)

	plane := img.faces[0]
	at := func(x, y int) common.Color {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return plane[y*w+x]
	}
	top := at(x0, y0).Mix(at(x0+1, y0), tx)
	bottom := at(x0, y0+1).Mix(at(x0+1, y0+1), tx)
	return top.Mix(bottom, ty)
}

// Load implements material.TextureSampler.
func (b *headlessRendererBackendImpl) Load(tex common.Texture, x, y int) common.Color {
	t := asTexture(tex)
	if t == nil {
		return common.Transparent
	}
	img := b.images[t]
	if img == nil {
		return common.Transparent
	}
	w, h := img.desc.width, img.desc.height
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	return img.faces[0][y*w+x]
}

// Depth implements material.TextureSampler. Color textures return their red channel.
func (b *headlessRendererBackendImpl) Depth(tex common.Texture, uv common.Vec2) float32 {
	t := asTexture(tex)
	if t == nil {
		return 1
	}
	if t.kind == common.TextureKindColor {
		x := int(uv[0] * float32(t.Width()))
		y := int(uv[1] * float32(t.Height()))
		return b.Load(tex, x, y)[0]
	}
	ds := b.depths[t]
	if ds == nil {
		return 1
	}
	x := min(max(int(uv[0]*float32(ds.width)), 0), ds.width-1)
	y := min(max(int(uv[1]*float32(ds.height)), 0), ds.height-1)
	return ds.depth[y*ds.width+x]
}

// fragment runs the per-sample operations for one covered pixel: stencil test, depth test,
// stencil update, depth write, then blending and the color write.
func (b *headlessRendererBackendImpl) fragment(img *cpuImage, face int, ds *cpuDepth, i int, c common.Color, z float32, st drawState, blending material.Blending) {
	stencil := st.stencilTest && ds != nil && ds.stencil != nil
	if stencil {
		stored := ds.stencil[i]
		mask := st.stencilFuncMask
		if !compare(st.stencilFunc, float32(st.stencilRef&mask), float32(uint32(stored)&mask)) {
			ds.writeStencil(i, stencilOp(st.stencilFail, stored, st.stencilRef), st.stencilWriteMask)
			return
		}
	}

	depthTest := st.depthTest && ds != nil && ds.hasDepth
	depthPass := !depthTest || compare(st.depthFunc, z, ds.depth[i])
	if stencil {
		op := st.stencilZPass
		if !depthPass {
			op = st.stencilZFail
		}
		ds.writeStencil(i, stencilOp(op, ds.stencil[i], st.stencilRef), st.stencilWriteMask)
	}
	if !depthPass {
		return
	}
	if depthTest && st.depthMask {
		ds.depth[i] = z
	}
	if !st.colorMask {
		return
	}

	plane := img.faces[face]
	dst := plane[i]
	switch blending {
	case material.BlendingNormal:
		a := c[3]
		c = common.Color{
			c[0]*a + dst[0]*(1-a),
			c[1]*a + dst[1]*(1-a),
			c[2]*a + dst[2]*(1-a),
			a + dst[3]*(1-a),
		}
	case material.BlendingAdditive:
		a := c[3]
		c = common.Color{c[0]*a + dst[0], c[1]*a + dst[1], c[2]*a + dst[2], dst[3]}
	}
	plane[i] = img.store(c)
}

// colorStorage resolves the color plane of a destination.
func (b *headlessRendererBackendImpl) colorStorage(dst destination) (*cpuImage, int, error) {
	if dst.target == nil {
		if b.screen == nil {
			return nil, 0, fmt.Errorf("renderer: surface not configured")
		}
		return b.screen, 0, nil
	}
	if dst.target.Disposed() {
		return nil, 0, ErrTargetDisposed
	}
	img := b.resolve(dst.target.texture)
	face := min(max(dst.face, 0), len(img.faces)-1)
	return img, face, nil
}

// depthStorage resolves the depth-stencil storage of a destination, or nil when it has none.
func (b *headlessRendererBackendImpl) depthStorage(dst destination) *cpuDepth {
	if dst.target == nil {
		return b.screenDepth
	}
	att := dst.target.attachments()
	if att.depthTexture != nil {
		ds := b.resolveDepth(att.depthTexture)
		if ds.width != att.width || ds.height != att.height {
			return nil
		}
		return ds
	}
	if !att.depth && !att.stencil {
		return nil
	}
	ds, ok := b.targetDepths[dst.target]
	if ok && ds.version == att.version && ds.width == att.width && ds.height == att.height {
		return ds
	}
	if !ok {
		rt := dst.target
		rt.texture.addDisposeListener(func() { b.queueRelease(rt.texture) })
	}
	ds = newCPUDepth(att.width, att.height, att.depth, att.stencil, att.version)
	b.targetDepths[dst.target] = ds
	return ds
}

// resolve returns the color storage of t, allocating it when missing or stale.
func (b *headlessRendererBackendImpl) resolve(t *texture) *cpuImage {
	if t.kind != common.TextureKindColor {
		b.resolveDepth(t)
		return nil
	}
	d := t.describe()
	img, ok := b.images[t]
	if ok && img.desc.version == d.version && img.desc.source == d.source {
		return img
	}
	if !ok {
		t.addDisposeListener(func() { b.queueRelease(t) })
	}
	img = newCPUImage(d)
	b.images[t] = img
	return img
}

// resolveDepth returns the storage of a depth texture, allocating it when missing or stale.
func (b *headlessRendererBackendImpl) resolveDepth(t *texture) *cpuDepth {
	d := t.describe()
	ds, ok := b.depths[t]
	if ok && ds.version == d.version {
		return ds
	}
	if !ok {
		t.addDisposeListener(func() { b.queueRelease(t) })
	}
	ds = newCPUDepth(d.width, d.height, true, d.kind == common.TextureKindDepthStencil, d.version)
	b.depths[t] = ds
	return ds
}

func (b *headlessRendererBackendImpl) queueRelease(t *texture) {
	b.releaseMu.Lock()
	b.released = append(b.released, t)
	b.releaseMu.Unlock()
}

// drain frees the storage of textures disposed since the last call. Requires mu.
func (b *headlessRendererBackendImpl) drain() {
	b.releaseMu.Lock()
	released := b.released
	b.released = nil
	b.releaseMu.Unlock()
	for _, t := range released {
		delete(b.images, t)
		delete(b.depths, t)
		for rt := range b.targetDepths {
			if rt.texture == t {
				delete(b.targetDepths, rt)
			}
		}
	}
}

// parallelRows splits rows into bands shaded on the worker pool and waits for all of them.
// Bands never overlap, so fn may write its rows without locking.
func (b *headlessRendererBackendImpl) parallelRows(rows int, fn func(y0, y1 int)) {
	workers := min(b.workers, rows)
	if workers <= 1 {
		fn(0, rows)
		return
	}
	pool := b.pool()
	band := (rows + workers - 1) / workers
	wg := sync.WaitGroup{}
	for y0 := 0; y0 < rows; y0 += band {
		y1 := min(y0+band, rows)
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: y0,
			Do: func() (any, error) {
				defer wg.Done()
				fn(y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// rowPool is shared by every headless backend. Its workers live for the life of the process.
var rowPool = sync.OnceValue(func() worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(max(runtime.GOMAXPROCS(0), 1), 256, 1*time.Second)
})

func newCPUImage(d textureDesc) *cpuImage {
	img := &cpuImage{desc: d, faces: make([][]common.Color, max(d.faces, 1))}
	for i := range img.faces {
		img.faces[i] = make([]common.Color, d.width*d.height)
	}
	if src := d.source; src != nil {
		bounds := src.Bounds()
		for y := 0; y < min(bounds.Dy(), d.height); y++ {
			for x := 0; x < min(bounds.Dx(), d.width); x++ {
				o := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				c := common.ColorFromRGBA8(src.Pix[o], src.Pix[o+1], src.Pix[o+2], src.Pix[o+3])
				if d.colorSpace == common.ColorSpaceSRGB {
					c = common.SRGBToLinear(c)
				}
				img.faces[0][y*d.width+x] = c
			}
		}
	}
	return img
}

// store converts a linear color to the value the texture holds after the write.
func (img *cpuImage) store(c common.Color) common.Color {
	if img.desc.pixelType == common.PixelTypeUnsignedByte {
		return common.Quantize8(c, img.desc.colorSpace)
	}
	return c
}

func newCPUDepth(width, height int, depth, stencil bool, version uint64) *cpuDepth {
	ds := &cpuDepth{width: width, height: height, hasDepth: depth, version: version}
	if depth {
		ds.depth = make([]float32, width*height)
		for i := range ds.depth {
			ds.depth[i] = 1
		}
	}
	if stencil {
		ds.stencil = make([]uint8, width*height)
	}
	return ds
}

func (ds *cpuDepth) writeStencil(i int, v uint8, writeMask uint32) {
	wm := uint8(writeMask)
	ds.stencil[i] = (ds.stencil[i] &^ wm) | (v & wm)
}

func (d destination) name() string {
	if d.target == nil {
		return "screen"
	}
	return d.target.name
}
