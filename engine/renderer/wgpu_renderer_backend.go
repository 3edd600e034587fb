package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// quadInstanceStride is the byte size of one quad instance: rect vec4, depth f32, color vec4.
	quadInstanceStride = 36

	// readbackRowAlignment is the required BytesPerRow alignment of texture to buffer copies.
	readbackRowAlignment = 256

	// gpuMaxSamples is the only multisample count above 1 that wgpu guarantees.
	gpuMaxSamples = 4
)

// gpuTexture is the GPU storage of a color texture.
type gpuTexture struct {
	desc    textureDesc
	format  wgpu.TextureFormat
	texture *wgpu.Texture
	// view samples the whole texture, as a cube for cube textures.
	view *wgpu.TextureView
	// faces are the single-layer attachment views.
	faces []*wgpu.TextureView
}

// gpuDepth is the GPU storage of a depth or depth-stencil attachment.
type gpuDepth struct {
	width    int
	height   int
	samples  uint32
	format   wgpu.TextureFormat
	stencil  bool
	version  uint64
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	sampling *wgpu.TextureView
}

// gpuTargetStorage holds the attachments a render target owns besides its color texture.
type gpuTargetStorage struct {
	version uint64
	width   int
	height  int
	samples uint32
	depth   *gpuDepth
	// ownsDepth is false when depth is an attached depth texture.
	ownsDepth bool

	msaa      *wgpu.Texture
	msaaViews []*wgpu.TextureView
}

// gpuProgram is a compiled material: shader modules, bind group providers and the pipelines
// created for every fixed-function state the material was drawn with.
type gpuProgram struct {
	label     string
	version   uint64
	vertex    shader.Shader
	fragment  shader.Shader
	vs, fs    *wgpu.ShaderModule
	layout    *wgpu.PipelineLayout
	providers []bind_group_provider.BindGroupProvider
	structs   map[[2]int]shader.StructLayout
	pipelines map[string]pipeline.Pipeline
}

// passTarget is a resolved destination: the views one render pass writes.
type passTarget struct {
	width   int
	height  int
	color   *wgpu.TextureView
	resolve *wgpu.TextureView
	format  wgpu.TextureFormat
	samples uint32
	depth   *gpuDepth
}

type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	limits   wgpu.Limits

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	outputSpace   common.ColorSpace
	width         int
	height        int

	// offscreen replaces the surface texture when the backend has no surface.
	offscreen   *gpuTexture
	screenDepth *gpuDepth

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView

	textures map[*texture]*gpuTexture
	depths   map[*texture]*gpuDepth
	targets  map[*renderTarget]*gpuTargetStorage
	programs map[material.Material]*gpuProgram
	samplers map[common.SamplerDescriptor]*wgpu.Sampler

	quads         material.Material
	quadBuffer    *wgpu.Buffer
	quadCapacity  uint64
	depthReadback material.Material

	dummyColor *gpuTexture
	dummyDepth *gpuDepth

	releaseMu *sync.Mutex
	released  []*texture
}

// wgpuRendererBackend extends RendererBackend with access to the wgpu objects.
type wgpuRendererBackend interface {
	RendererBackend

	// SetOutputColorSpace selects the surface encoding. Takes effect on the next ConfigureSurface.
	SetOutputColorSpace(cs common.ColorSpace)

	// Instance returns the wgpu instance.
	Instance() *wgpu.Instance

	// Adapter returns the selected adapter.
	Adapter() *wgpu.Adapter

	// Device returns the logical device.
	Device() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Surface returns the presentation surface, or nil when rendering off-screen.
	Surface() *wgpu.Surface
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, adapter and device. A nil surface descriptor
// selects off-screen rendering.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, may be nil
//   - forceFallbackAdapter: request the software adapter
//
// Returns:
//   - wgpuRendererBackend: the backend
//   - error: an error if no adapter or device is available
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		outputSpace: common.ColorSpaceSRGB,
		textures:    make(map[*texture]*gpuTexture),
		depths:      make(map[*texture]*gpuDepth),
		targets:     make(map[*renderTarget]*gpuTargetStorage),
		programs:    make(map[material.Material]*gpuProgram),
		samplers:    make(map[common.SamplerDescriptor]*wgpu.Sampler),
		quads:       material.NewQuadMaterial(),
		releaseMu:   &sync.Mutex{},
	}
	b.depthReadback = material.NewDepthReadbackMaterial()
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.instance.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	b.limits = wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: b.limits,
		},
	})
	if err != nil {
		a.Release()
		b.instance.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

func (b *wgpuRendererBackendImpl) Capabilities() Capabilities {
	return Capabilities{
		MaxSamples:     gpuMaxSamples,
		FloatTextures:  false,
		DepthTextures:  true,
		MaxTextureSize: int(b.limits.MaxTextureDimension2D),
	}
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.configure(max(width, 1), max(height, 1)); err != nil {
		common.Logger().Error("configure surface failed", "width", width, "height", height, "error", err)
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SetOutputColorSpace(cs common.ColorSpace) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputSpace = cs
}

func (b *wgpuRendererBackendImpl) Clear(dst destination, op clearOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	pt, err := b.passTarget(dst)
	if err != nil {
		return err
	}
	if pt.depth == nil {
		op.depth, op.stencil = nil, nil
	}
	if pt.depth != nil && !pt.depth.stencil {
		op.stencil = nil
	}
	if op.stencil != nil && op.stencilWriteMask&0xFF != 0xFF {
		common.WarnOnce("wgpu-stencil-clear-mask",
			"partial stencil write masks are ignored by clears", "mask", op.stencilWriteMask)
	}
	return b.submit(pt, &op, func(*wgpu.RenderPassEncoder) {})
}

func (b *wgpuRendererBackendImpl) DrawFullscreen(dst destination, m material.Material, ds drawState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()
	b.collectPrograms()

	pt, err := b.passTarget(dst)
	if err != nil {
		return err
	}
	prog, err := b.program(m)
	if err != nil {
		return err
	}
	if err := b.bind(prog, m.Uniforms(), material.FrameFor(m, pt.width, pt.height), nil); err != nil {
		return err
	}
	p, err := b.pipelineFor(prog, pt, ds, ds.blending)
	if err != nil {
		return err
	}
	return b.submit(pt, nil, func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(p.RenderPipeline())
		pass.SetStencilReference(ds.stencilRef & 0xFF)
		for i, provider := range prog.providers {
			pass.SetBindGroup(uint32(i), provider.BindGroup(), nil)
		}
		pass.Draw(3, 1, 0, 0)
	})
}

func (b *wgpuRendererBackendImpl) DrawQuads(dst destination, quads []Quad, ds drawState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	if len(quads) == 0 {
		return nil
	}
	pt, err := b.passTarget(dst)
	if err != nil {
		return err
	}
	prog, err := b.program(b.quads)
	if err != nil {
		return err
	}
	if err := b.bind(prog, nil, material.NewFrame(pt.width, pt.height), nil); err != nil {
		return err
	}
	if err := b.writeQuads(quads); err != nil {
		return err
	}

	// consecutive quads sharing a blending mode draw as one instanced strip
	type run struct {
		p     pipeline.Pipeline
		first uint32
		count uint32
	}
	var runs []run
	for i := 0; i < len(quads); {
		j := i + 1
		for j < len(quads) && quads[j].Blending == quads[i].Blending {
			j++
		}
		p, err := b.pipelineFor(prog, pt, ds, quads[i].Blending,
			pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleStrip),
			pipeline.WithVertexBuffers(quadVertexLayout),
		)
		if err != nil {
			return err
		}
		runs = append(runs, run{p: p, first: uint32(i), count: uint32(j - i)})
		i = j
	}

	return b.submit(pt, nil, func(pass *wgpu.RenderPassEncoder) {
		pass.SetStencilReference(ds.stencilRef & 0xFF)
		for i, provider := range prog.providers {
			pass.SetBindGroup(uint32(i), provider.BindGroup(), nil)
		}
		pass.SetVertexBuffer(0, b.quadBuffer, 0, wgpu.WholeSize)
		for _, r := range runs {
			pass.SetPipeline(r.p.RenderPipeline())
			pass.Draw(4, r.count, 0, r.first)
		}
	})
}

func (b *wgpuRendererBackendImpl) ReadPixels(dst destination) (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	tex, layer, format, space, w, h, err := b.colorSource(dst)
	if err != nil {
		return nil, err
	}
	bpp := formatBytesPerPixel(format)
	if bpp == 0 {
		return nil, fmt.Errorf("renderer: cannot read pixels of format %v", format)
	}
	data, err := b.readTexture(tex, layer, wgpu.TextureAspectAll, w, h, bpp)
	if err != nil {
		return nil, err
	}
	return decodePixels(data, format, space, w, h), nil
}

func (b *wgpuRendererBackendImpl) ReadDepth(dst destination) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain()

	pt, err := b.passTarget(dst)
	if err != nil {
		return nil, err
	}
	if pt.depth == nil {
		return nil, fmt.Errorf("renderer: %s has no depth buffer", dst.name())
	}
	if pt.depth.samples > 1 {
		return nil, fmt.Errorf("renderer: cannot read multisampled depth of %s", dst.name())
	}

	// depth formats are not copyable, so draw the depth into a float target first
	scratch, err := b.createColorTexture("depth readback", pt.width, pt.height, 1, wgpu.TextureFormatRGBA32Float)
	if err != nil {
		return nil, err
	}
	defer scratch.release()

	prog, err := b.program(b.depthReadback)
	if err != nil {
		return nil, err
	}
	overrides := map[string]*wgpu.TextureView{material.UniformDepthBuffer: pt.depth.sampling}
	if err := b.bind(prog, b.depthReadback.Uniforms(), material.NewFrame(pt.width, pt.height), overrides); err != nil {
		return nil, err
	}
	target := &passTarget{
		width:   pt.width,
		height:  pt.height,
		color:   scratch.faces[0],
		format:  scratch.format,
		samples: 1,
	}
	ds := drawState{colorMask: true, depthFunc: wgpu.CompareFunctionAlways, stencilFunc: wgpu.CompareFunctionAlways}
	p, err := b.pipelineFor(prog, target, ds, material.BlendingNone)
	if err != nil {
		return nil, err
	}
	err = b.submit(target, nil, func(pass *wgpu.RenderPassEncoder) {
		pass.SetPipeline(p.RenderPipeline())
		for i, provider := range prog.providers {
			pass.SetBindGroup(uint32(i), provider.BindGroup(), nil)
		}
		pass.Draw(3, 1, 0, 0)
	})
	if err != nil {
		return nil, err
	}

	data, err := b.readTexture(scratch.texture, 0, wgpu.TextureAspectAll, pt.width, pt.height, 16)
	if err != nil {
		return nil, err
	}
	out := make([]float32, pt.width*pt.height)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*16:]))
	}
	return out, nil
}

func (b *wgpuRendererBackendImpl) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.frameTexture == nil {
		return nil
	}
	b.surface.Present()
	b.releaseFrame()
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseResources() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseResources()
	if err := b.configure(b.width, b.height); err != nil {
		common.Logger().Error("reconfigure after release failed", "error", err)
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseResources()
	if b.screenDepth != nil {
		b.screenDepth.release()
		b.screenDepth = nil
	}
	if b.offscreen != nil {
		b.offscreen.release()
		b.offscreen = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}

// configure (re)creates the screen attachments. Requires mu.
func (b *wgpuRendererBackendImpl) configure(width, height int) error {
	if b.device == nil {
		return ErrContextLost
	}
	b.releaseFrame()
	b.width, b.height = width, height

	if b.surface != nil {
		capabilities := b.surface.GetCapabilities(b.adapter)
		if len(capabilities.Formats) == 0 {
			return errors.New("surface reports no formats")
		}
		b.surfaceFormat = pickSurfaceFormat(capabilities.Formats, b.outputSpace)
		b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
			Format:      b.surfaceFormat,
			Width:       uint32(width),
			Height:      uint32(height),
			PresentMode: b.presentMode,
			AlphaMode:   capabilities.AlphaModes[0],
		})
	} else {
		if b.offscreen != nil {
			b.offscreen.release()
		}
		b.surfaceFormat = wgpu.TextureFormatRGBA8Unorm
		if b.outputSpace == common.ColorSpaceSRGB {
			b.surfaceFormat = wgpu.TextureFormatRGBA8UnormSrgb
		}
		tex, err := b.createColorTexture("Offscreen Screen", width, height, 1, b.surfaceFormat)
		if err != nil {
			return err
		}
		b.offscreen = tex
	}

	if b.screenDepth != nil {
		b.screenDepth.release()
	}
	depth, err := b.createDepth("Screen Depth", width, height, 1, true, 0)
	if err != nil {
		return err
	}
	b.screenDepth = depth
	return nil
}

// passTarget resolves the attachments of a destination, allocating stale storage. Requires mu.
func (b *wgpuRendererBackendImpl) passTarget(dst destination) (*passTarget, error) {
	if b.device == nil {
		return nil, ErrContextLost
	}
	if dst.target == nil {
		view, err := b.screenView()
		if err != nil {
			return nil, err
		}
		return &passTarget{
			width:   b.width,
			height:  b.height,
			color:   view,
			format:  b.surfaceFormat,
			samples: 1,
			depth:   b.screenDepth,
		}, nil
	}
	if dst.target.Disposed() {
		return nil, ErrTargetDisposed
	}

	tex, err := b.resolve(dst.target.texture)
	if err != nil {
		return nil, err
	}
	face := min(max(dst.face, 0), len(tex.faces)-1)
	storage, err := b.targetStorage(dst.target)
	if err != nil {
		return nil, err
	}
	pt := &passTarget{
		width:   tex.desc.width,
		height:  tex.desc.height,
		color:   tex.faces[face],
		format:  tex.format,
		samples: storage.samples,
		depth:   storage.depth,
	}
	if storage.samples > 1 {
		pt.color = storage.msaaViews[face]
		pt.resolve = tex.faces[face]
	}
	return pt, nil
}

// targetStorage returns the depth and multisample attachments of a render target. Requires mu.
func (b *wgpuRendererBackendImpl) targetStorage(rt *renderTarget) (*gpuTargetStorage, error) {
	att := rt.attachments()
	samples := uint32(1)
	if att.samples > 1 && att.depthTexture == nil {
		samples = gpuMaxSamples
	}
	s, ok := b.targets[rt]
	if ok && s.version == att.version && s.width == att.width && s.height == att.height && s.samples == samples {
		if att.depthTexture != nil {
			depth, err := b.resolveDepth(att.depthTexture)
			if err != nil {
				return nil, err
			}
			s.depth = depth
		}
		return s, nil
	}
	if ok {
		s.release()
	} else {
		rt.texture.addDisposeListener(func() { b.queueRelease(rt.texture) })
	}

	s = &gpuTargetStorage{version: att.version, width: att.width, height: att.height, samples: samples}
	b.targets[rt] = s
	switch {
	case att.depthTexture != nil:
		if att.samples > 1 {
			common.WarnOnce(common.WarnKey("wgpu-msaa-depth-texture", rt.name),
				"multisampling is disabled for targets with a depth texture", "target", rt.name)
		}
		depth, err := b.resolveDepth(att.depthTexture)
		if err != nil {
			return nil, err
		}
		s.depth = depth
	case att.depth || att.stencil:
		depth, err := b.createDepth(rt.name+" Depth", att.width, att.height, samples, att.stencil, att.version)
		if err != nil {
			return nil, err
		}
		s.depth = depth
		s.ownsDepth = true
	}

	if samples > 1 {
		tex, err := b.resolve(rt.texture)
		if err != nil {
			return nil, err
		}
		s.msaa, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: rt.name + " MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(att.width),
				Height:             uint32(att.height),
				DepthOrArrayLayers: uint32(len(tex.faces)),
			},
			MipLevelCount: 1,
			SampleCount:   samples,
			Dimension:     wgpu.TextureDimension2D,
			Format:        tex.format,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return nil, err
		}
		for face := range tex.faces {
			view, err := s.msaa.CreateView(&wgpu.TextureViewDescriptor{
				Format:          tex.format,
				Dimension:       wgpu.TextureViewDimension2D,
				BaseMipLevel:    0,
				MipLevelCount:   1,
				BaseArrayLayer:  uint32(face),
				ArrayLayerCount: 1,
				Aspect:          wgpu.TextureAspectAll,
			})
			if err != nil {
				return nil, err
			}
			s.msaaViews = append(s.msaaViews, view)
		}
	}
	return s, nil
}

// resolve returns the storage of a color texture, allocating it when missing or stale. Requires mu.
func (b *wgpuRendererBackendImpl) resolve(t *texture) (*gpuTexture, error) {
	d := t.describe()
	tex, ok := b.textures[t]
	if ok && tex.desc.version == d.version && tex.desc.source == d.source {
		return tex, nil
	}
	if ok {
		tex.release()
	} else {
		t.addDisposeListener(func() { b.queueRelease(t) })
	}

	tex, err := b.createColorTexture(t.name, d.width, d.height, max(d.faces, 1), colorFormat(d))
	if err != nil {
		delete(b.textures, t)
		return nil, err
	}
	tex.desc = d
	if src := d.source; src != nil {
		b.upload(tex, src)
	}
	b.textures[t] = tex
	return tex, nil
}

// resolveDepth returns the storage of a depth texture, allocating it when missing or stale. Requires mu.
func (b *wgpuRendererBackendImpl) resolveDepth(t *texture) (*gpuDepth, error) {
	d := t.describe()
	depth, ok := b.depths[t]
	if ok && depth.version == d.version {
		return depth, nil
	}
	if ok {
		depth.release()
	} else {
		t.addDisposeListener(func() { b.queueRelease(t) })
	}
	depth, err := b.createDepth(t.name, d.width, d.height, 1, d.kind == common.TextureKindDepthStencil, d.version)
	if err != nil {
		delete(b.depths, t)
		return nil, err
	}
	b.depths[t] = depth
	return depth, nil
}

func (b *wgpuRendererBackendImpl) createColorTexture(label string, width, height, faces int, format wgpu.TextureFormat) (*gpuTexture, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(faces),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	g := &gpuTexture{
		desc:    textureDesc{width: width, height: height, faces: faces},
		format:  format,
		texture: tex,
	}

	dimension := wgpu.TextureViewDimension2D
	if faces == CubeFaces {
		dimension = wgpu.TextureViewDimensionCube
	}
	g.view, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Format:          format,
		Dimension:       dimension,
		MipLevelCount:   1,
		ArrayLayerCount: uint32(faces),
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		g.release()
		return nil, err
	}
	for face := 0; face < faces; face++ {
		view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(face),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			g.release()
			return nil, err
		}
		g.faces = append(g.faces, view)
	}
	return g, nil
}

func (b *wgpuRendererBackendImpl) createDepth(label string, width, height int, samples uint32, stencil bool, version uint64) (*gpuDepth, error) {
	format := wgpu.TextureFormatDepth32Float
	if stencil {
		format = wgpu.TextureFormatDepth24PlusStencil8
	}
	usage := wgpu.TextureUsageRenderAttachment
	if samples == 1 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create depth texture %s: %w", label, err)
	}
	d := &gpuDepth{
		width:   width,
		height:  height,
		samples: samples,
		format:  format,
		stencil: stencil,
		version: version,
		texture: tex,
	}
	d.view, err = tex.CreateView(nil)
	if err != nil {
		d.release()
		return nil, err
	}
	if samples == 1 {
		d.sampling, err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			d.release()
			return nil, err
		}
	}

	// depth starts at the far plane like a cleared buffer
	clearDepth, clearStencil := float32(1), uint32(0)
	err = b.submit(&passTarget{width: width, height: height, samples: samples, depth: d},
		&clearOp{depth: &clearDepth, stencil: &clearStencil, stencilWriteMask: 0xFF},
		func(*wgpu.RenderPassEncoder) {})
	if err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

// upload writes an RGBA8 image into the first face of tex.
func (b *wgpuRendererBackendImpl) upload(tex *gpuTexture, src *image.RGBA) {
	bounds := src.Bounds()
	w, h := min(bounds.Dx(), tex.desc.width), min(bounds.Dy(), tex.desc.height)
	if w <= 0 || h <= 0 {
		return
	}
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		o := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pixels[y*w*4:(y+1)*w*4], src.Pix[o:o+w*4])
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(w * 4),
			RowsPerImage: uint32(h),
		},
		&wgpu.Extent3D{
			Width:              uint32(w),
			Height:             uint32(h),
			DepthOrArrayLayers: 1,
		},
	)
}

// screenView returns the view of the current screen image, acquiring a surface texture once per
// frame. Requires mu.
func (b *wgpuRendererBackendImpl) screenView() (*wgpu.TextureView, error) {
	if b.surface == nil {
		if b.offscreen == nil {
			return nil, errors.New("renderer: surface not configured")
		}
		return b.offscreen.faces[0], nil
	}
	if b.frameView != nil {
		return b.frameView, nil
	}
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	b.frameTexture = surfaceTexture
	b.frameView = view
	return view, nil
}

func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameTexture != nil {
		b.frameTexture.Release()
		b.frameTexture = nil
	}
}

// colorSource resolves the texture, layer and encoding ReadPixels copies from. Requires mu.
func (b *wgpuRendererBackendImpl) colorSource(dst destination) (*wgpu.Texture, uint32, wgpu.TextureFormat, common.ColorSpace, int, int, error) {
	if dst.target == nil {
		if _, err := b.screenView(); err != nil {
			return nil, 0, 0, 0, 0, 0, err
		}
		tex := b.frameTexture
		if b.surface == nil {
			tex = b.offscreen.texture
		}
		return tex, 0, b.surfaceFormat, b.outputSpace, b.width, b.height, nil
	}
	if dst.target.Disposed() {
		return nil, 0, 0, 0, 0, 0, ErrTargetDisposed
	}
	tex, err := b.resolve(dst.target.texture)
	if err != nil {
		return nil, 0, 0, 0, 0, 0, err
	}
	layer := uint32(min(max(dst.face, 0), len(tex.faces)-1))
	return tex.texture, layer, tex.format, tex.desc.colorSpace, tex.desc.width, tex.desc.height, nil
}

// program returns the compiled program of m, rebuilding it when the material version changed. Requires mu.
func (b *wgpuRendererBackendImpl) program(m material.Material) (*gpuProgram, error) {
	version := m.Version()
	prog, ok := b.programs[m]
	if ok && prog.version == version {
		return prog, nil
	}
	if ok {
		prog.release()
		delete(b.programs, m)
	}

	defines := m.Defines()
	vertex, err := shader.NewShader(m.Name()+" Vertex", shader.ShaderTypeVertex, m.VertexShader(), shader.WithDefines(defines))
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", m.Name(), err)
	}
	fragment, err := shader.NewShader(m.Name()+" Fragment", shader.ShaderTypeFragment, m.FragmentShader(), shader.WithDefines(defines))
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", m.Name(), err)
	}

	prog = &gpuProgram{
		label:     m.Name(),
		version:   version,
		vertex:    vertex,
		fragment:  fragment,
		structs:   make(map[[2]int]shader.StructLayout),
		pipelines: make(map[string]pipeline.Pipeline),
	}
	if prog.vs, err = b.device.CreateShaderModule(vertex.Module()); err != nil {
		return nil, fmt.Errorf("material %s: vertex module: %w", m.Name(), err)
	}
	if prog.fs, err = b.device.CreateShaderModule(fragment.Module()); err != nil {
		prog.release()
		return nil, fmt.Errorf("material %s: fragment module: %w", m.Name(), err)
	}

	merged := mergeBindGroupLayouts(vertex.BindGroupLayoutDescriptors(), fragment.BindGroupLayoutDescriptors())
	bindings := mergeBindings(vertex.Bindings(), fragment.Bindings())
	maxGroup := -1
	for g := range merged {
		maxGroup = max(maxGroup, g)
	}
	layouts := make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc := merged[g]
		desc.Label = fmt.Sprintf("%s Group %d", m.Name(), g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			prog.release()
			return nil, fmt.Errorf("material %s: bind group layout %d: %w", m.Name(), g, err)
		}
		layouts[g] = layout

		var entries []shader.Binding
		for _, binding := range bindings {
			if binding.Group == g {
				entries = append(entries, binding)
			}
		}
		provider := bind_group_provider.NewBindGroupProvider(desc.Label,
			bind_group_provider.WithGroup(g),
			bind_group_provider.WithEntries(entries),
			bind_group_provider.WithBindGroupLayout(layout),
		)
		prog.providers = append(prog.providers, provider)

		for _, entry := range entries {
			if entry.AddressSpace != "uniform" {
				continue
			}
			layout, err := uniformStructLayout(entry.Type, fragment.Source(), vertex.Source())
			if err != nil {
				prog.release()
				return nil, fmt.Errorf("material %s: %w", m.Name(), err)
			}
			buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s %s Buffer", m.Name(), entry.Name),
				Size:  (layout.Size + 15) &^ 15,
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				prog.release()
				return nil, err
			}
			provider.SetBuffer(entry.Binding, buf)
			prog.structs[[2]int{g, entry.Binding}] = layout
		}
	}

	prog.layout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            m.Name(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		prog.release()
		return nil, err
	}
	b.programs[m] = prog
	common.Logger().Debug("material compiled", "material", m.Name(), "version", version, "groups", len(layouts))
	return prog, nil
}

// bind uploads uniform values and points texture bindings at the current views, rebuilding
// stale bind groups. Requires mu.
func (b *wgpuRendererBackendImpl) bind(prog *gpuProgram, uniforms map[string]*material.Uniform, frame material.Frame, overrides map[string]*wgpu.TextureView) error {
	for _, provider := range prog.providers {
		entries := provider.Entries()
		for _, entry := range entries {
			switch {
			case entry.AddressSpace == "uniform":
				var data []byte
				if entry.Type == "FrameUniforms" {
					data = (&shader.GPUFrameUniforms{
						Resolution: frame.Resolution,
						TexelSize:  frame.TexelSize,
						CameraNear: frame.CameraNear,
						CameraFar:  frame.CameraFar,
						Time:       frame.Time,
						Aspect:     frame.Aspect,
					}).Marshal()
				} else {
					data = material.PackUniforms(prog.structs[[2]int{provider.Group(), entry.Binding}], uniforms)
				}
				b.queue.WriteBuffer(provider.Buffer(entry.Binding), 0, data)
			case entry.Type == "sampler" || entry.Type == "sampler_comparison":
				desc := common.LinearClampSampler
				if strings.Contains(strings.ToLower(entry.Name), "nearest") {
					desc = common.NearestClampSampler
				}
				sampler, err := b.sampler(desc)
				if err != nil {
					return err
				}
				provider.SetSampler(entry.Binding, sampler)
			case strings.HasPrefix(entry.Type, "texture_"):
				view, err := b.textureView(entry, uniforms, overrides)
				if err != nil {
					return err
				}
				provider.SetTextureView(entry.Binding, view)
			}
		}
		if !provider.Stale() {
			continue
		}

		groupEntries := make([]wgpu.BindGroupEntry, 0, len(entries))
		for _, entry := range entries {
			e := wgpu.BindGroupEntry{Binding: uint32(entry.Binding)}
			switch {
			case provider.Buffer(entry.Binding) != nil:
				e.Buffer = provider.Buffer(entry.Binding)
				e.Offset = 0
				e.Size = wgpu.WholeSize
			case provider.Sampler(entry.Binding) != nil:
				e.Sampler = provider.Sampler(entry.Binding)
			default:
				e.TextureView = provider.TextureView(entry.Binding)
			}
			groupEntries = append(groupEntries, e)
		}
		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   provider.Label() + " Bind Group",
			Layout:  provider.BindGroupLayout(),
			Entries: groupEntries,
		})
		if err != nil {
			return fmt.Errorf("bind group %s: %w", provider.Label(), err)
		}
		provider.SetBindGroup(bindGroup)
	}
	return nil
}

// textureView resolves the view bound to a texture declaration. Unset uniforms bind a 1x1
// placeholder of the declared kind. Requires mu.
func (b *wgpuRendererBackendImpl) textureView(entry shader.Binding, uniforms map[string]*material.Uniform, overrides map[string]*wgpu.TextureView) (*wgpu.TextureView, error) {
	if view := overrides[entry.Name]; view != nil {
		return view, nil
	}
	wantsDepth := strings.HasPrefix(entry.Type, "texture_depth")
	if u := uniforms[entry.Name]; u != nil {
		if t := asTexture(u.Texture()); t != nil && !t.Disposed() {
			if t.kind == common.TextureKindColor && !wantsDepth {
				tex, err := b.resolve(t)
				if err != nil {
					return nil, err
				}
				return tex.view, nil
			}
			if t.kind != common.TextureKindColor && wantsDepth {
				depth, err := b.resolveDepth(t)
				if err != nil {
					return nil, err
				}
				return depth.sampling, nil
			}
			common.WarnOnce(common.WarnKey("wgpu-texture-kind", entry.Name, t.name),
				"texture kind does not match its binding", "binding", entry.Name, "texture", t.name)
		}
	}

	if wantsDepth {
		if b.dummyDepth == nil {
			depth, err := b.createDepth("Placeholder Depth", 1, 1, 1, false, 0)
			if err != nil {
				return nil, err
			}
			b.dummyDepth = depth
		}
		return b.dummyDepth.sampling, nil
	}
	if b.dummyColor == nil {
		tex, err := b.createColorTexture("Placeholder Texture", 1, 1, 1, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			return nil, err
		}
		b.dummyColor = tex
	}
	return b.dummyColor.view, nil
}

// sampler returns the shared sampler for desc, creating it on first use. Requires mu.
func (b *wgpuRendererBackendImpl) sampler(desc common.SamplerDescriptor) (*wgpu.Sampler, error) {
	if s, ok := b.samplers[desc]; ok {
		return s, nil
	}
	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Sampler",
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, err
	}
	b.samplers[desc] = s
	return s, nil
}

// pipelineFor returns the pipeline of prog matching the attachments and the draw state,
// creating it on first use. Requires mu.
func (b *wgpuRendererBackendImpl) pipelineFor(prog *gpuProgram, pt *passTarget, ds drawState, blending material.Blending, extra ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(prog.vertex),
		pipeline.WithFragmentShader(prog.fragment),
		pipeline.WithColorFormat(pt.format),
		pipeline.WithSampleCount(pt.samples),
		pipeline.WithBlendState(blending.BlendState()),
	}
	if !ds.colorMask {
		opts = append(opts, pipeline.WithWriteMask(wgpu.ColorWriteMaskNone))
	}
	if pt.depth != nil {
		opts = append(opts, pipeline.WithDepthStencilFormat(pt.depth.format))
		if ds.depthTest {
			opts = append(opts, pipeline.WithDepth(ds.depthFunc, ds.depthMask))
		} else {
			opts = append(opts, pipeline.WithDepth(wgpu.CompareFunctionAlways, false))
		}
		if ds.stencilTest && pt.depth.stencil {
			opts = append(opts, pipeline.WithStencil(pipeline.StencilState{
				Compare:     ds.stencilFunc,
				FailOp:      ds.stencilFail,
				DepthFailOp: ds.stencilZFail,
				PassOp:      ds.stencilZPass,
				ReadMask:    ds.stencilFuncMask & 0xFF,
				WriteMask:   ds.stencilWriteMask & 0xFF,
			}))
		}
	}
	opts = append(opts, extra...)

	p := pipeline.NewPipeline(prog.label, opts...)
	key := p.StateKey()
	if cached, ok := prog.pipelines[key]; ok {
		return cached, nil
	}
	rp, err := b.device.CreateRenderPipeline(p.Descriptor(prog.layout, prog.vs, prog.fs))
	if err != nil {
		return nil, fmt.Errorf("material %s: render pipeline: %w", prog.label, err)
	}
	p.SetRenderPipeline(rp)
	prog.pipelines[key] = p
	return p, nil
}

// submit records one render pass into pt and submits it. A nil clear loads every attachment.
func (b *wgpuRendererBackendImpl) submit(pt *passTarget, op *clearOp, record func(pass *wgpu.RenderPassEncoder)) error {
	desc := &wgpu.RenderPassDescriptor{}
	if pt.color != nil {
		color := wgpu.RenderPassColorAttachment{
			View:          pt.color,
			ResolveTarget: pt.resolve,
			LoadOp:        wgpu.LoadOpLoad,
			StoreOp:       wgpu.StoreOpStore,
		}
		if op != nil && op.color != nil {
			c := *op.color
			color.LoadOp = wgpu.LoadOpClear
			color.ClearValue = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{color}
	}
	if pt.depth != nil {
		depth := &wgpu.RenderPassDepthStencilAttachment{
			View:         pt.depth.view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if op != nil && op.depth != nil {
			depth.DepthLoadOp = wgpu.LoadOpClear
			depth.DepthClearValue = *op.depth
		}
		if pt.depth.stencil {
			depth.StencilLoadOp = wgpu.LoadOpLoad
			depth.StencilStoreOp = wgpu.StoreOpStore
			if op != nil && op.stencil != nil {
				depth.StencilLoadOp = wgpu.LoadOpClear
				depth.StencilClearValue = *op.stencil & 0xFF
			}
		}
		desc.DepthStencilAttachment = depth
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(desc)
	record(pass)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// writeQuads uploads the quad instances, growing the instance buffer as needed. Requires mu.
func (b *wgpuRendererBackendImpl) writeQuads(quads []Quad) error {
	size := uint64(len(quads) * quadInstanceStride)
	if b.quadBuffer == nil || b.quadCapacity < size {
		if b.quadBuffer != nil {
			b.quadBuffer.Release()
		}
		capacity := max(size*2, 64*quadInstanceStride)
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Quad Instances",
			Size:  capacity,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			b.quadBuffer, b.quadCapacity = nil, 0
			return err
		}
		b.quadBuffer, b.quadCapacity = buf, capacity
	}

	data := make([]float32, 0, len(quads)*quadInstanceStride/4)
	for _, q := range quads {
		data = append(data, q.X0, q.Y0, q.X1, q.Y1, q.Depth, q.Color[0], q.Color[1], q.Color[2], q.Color[3])
	}
	b.queue.WriteBuffer(b.quadBuffer, 0, common.SliceToBytes(data))
	return nil
}

// readTexture copies one layer of a texture into host memory, removing the row padding. Requires mu.
func (b *wgpuRendererBackendImpl) readTexture(tex *wgpu.Texture, layer uint32, aspect wgpu.TextureAspect, width, height, bytesPerPixel int) ([]byte, error) {
	rowBytes := width * bytesPerPixel
	padded := (rowBytes + readbackRowAlignment - 1) / readbackRowAlignment * readbackRowAlignment
	size := uint64(padded * height)

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   aspect,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(padded),
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	done := false
	status := wgpu.BufferMapAsyncStatusSuccess
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	if err != nil {
		return nil, err
	}
	for !done {
		b.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("renderer: map readback buffer: status %v", status)
	}
	mapped := buf.GetMappedRange(0, uint(size))
	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], mapped[y*padded:y*padded+rowBytes])
	}
	buf.Unmap()
	return out, nil
}

// collectPrograms drops the programs of disposed materials. Requires mu.
func (b *wgpuRendererBackendImpl) collectPrograms() {
	for m, prog := range b.programs {
		if m.Disposed() {
			prog.release()
			delete(b.programs, m)
		}
	}
}

func (b *wgpuRendererBackendImpl) queueRelease(t *texture) {
	b.releaseMu.Lock()
	b.released = append(b.released, t)
	b.releaseMu.Unlock()
}

// drain frees the storage of textures disposed since the last call. Requires mu.
func (b *wgpuRendererBackendImpl) drain() {
	b.releaseMu.Lock()
	released := b.released
	b.released = nil
	b.releaseMu.Unlock()
	for _, t := range released {
		if tex, ok := b.textures[t]; ok {
			tex.release()
			delete(b.textures, t)
		}
		if depth, ok := b.depths[t]; ok {
			depth.release()
			delete(b.depths, t)
		}
		for rt, s := range b.targets {
			if rt.texture == t {
				s.release()
				delete(b.targets, rt)
			}
		}
	}
}

// releaseResources frees every texture, program and sampler. Requires mu.
func (b *wgpuRendererBackendImpl) releaseResources() {
	b.releaseFrame()
	for t, tex := range b.textures {
		tex.release()
		delete(b.textures, t)
	}
	for t, depth := range b.depths {
		depth.release()
		delete(b.depths, t)
	}
	for rt, s := range b.targets {
		s.release()
		delete(b.targets, rt)
	}
	for m, prog := range b.programs {
		prog.release()
		delete(b.programs, m)
	}
	for desc, s := range b.samplers {
		s.Release()
		delete(b.samplers, desc)
	}
	if b.quadBuffer != nil {
		b.quadBuffer.Release()
		b.quadBuffer, b.quadCapacity = nil, 0
	}
	if b.dummyColor != nil {
		b.dummyColor.release()
		b.dummyColor = nil
	}
	if b.dummyDepth != nil {
		b.dummyDepth.release()
		b.dummyDepth = nil
	}
}

func (t *gpuTexture) release() {
	for _, view := range t.faces {
		view.Release()
	}
	t.faces = nil
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func (d *gpuDepth) release() {
	if d.sampling != nil {
		d.sampling.Release()
		d.sampling = nil
	}
	if d.view != nil {
		d.view.Release()
		d.view = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}

// release frees the attachments the storage owns. Attached depth textures belong to the
// depth texture map and survive.
func (s *gpuTargetStorage) release() {
	for _, view := range s.msaaViews {
		view.Release()
	}
	s.msaaViews = nil
	if s.msaa != nil {
		s.msaa.Release()
		s.msaa = nil
	}
	if s.depth != nil && s.ownsDepth {
		s.depth.release()
	}
	s.depth = nil
}

func (p *gpuProgram) release() {
	for _, pl := range p.pipelines {
		pl.Release()
	}
	clear(p.pipelines)
	for _, provider := range p.providers {
		provider.Release()
	}
	p.providers = nil
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.vs != nil {
		p.vs.Release()
		p.vs = nil
	}
	if p.fs != nil {
		p.fs.Release()
		p.fs = nil
	}
}

var quadVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: quadInstanceStride,
	StepMode:    wgpu.VertexStepModeInstance,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32, Offset: 16, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 20, ShaderLocation: 2},
	},
}

// colorFormat selects the wgpu format of a color texture.
func colorFormat(d textureDesc) wgpu.TextureFormat {
	switch d.pixelType {
	case common.PixelTypeHalfFloat, common.PixelTypeFloat:
		return wgpu.TextureFormatRGBA16Float
	}
	if d.colorSpace == common.ColorSpaceSRGB {
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
	return wgpu.TextureFormatRGBA8Unorm
}

// pickSurfaceFormat prefers a surface format whose encoding matches the output color space.
func pickSurfaceFormat(formats []wgpu.TextureFormat, space common.ColorSpace) wgpu.TextureFormat {
	for _, f := range formats {
		srgb := f == wgpu.TextureFormatRGBA8UnormSrgb || f == wgpu.TextureFormatBGRA8UnormSrgb
		linear := f == wgpu.TextureFormatRGBA8Unorm || f == wgpu.TextureFormatBGRA8Unorm
		if (space == common.ColorSpaceSRGB && srgb) || (space == common.ColorSpaceLinear && linear) {
			return f
		}
	}
	return formats[0]
}

func formatBytesPerPixel(f wgpu.TextureFormat) int {
	switch f {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		return 4
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// decodePixels converts tightly packed texels into an RGBA8 image. 8-bit formats are returned as
// stored; float formats are encoded with the texture color space.
func decodePixels(data []byte, f wgpu.TextureFormat, space common.ColorSpace, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height
	switch f {
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb:
		copy(out.Pix, data[:n*4])
	case wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb:
		for i := 0; i < n; i++ {
			out.Pix[i*4+0] = data[i*4+2]
			out.Pix[i*4+1] = data[i*4+1]
			out.Pix[i*4+2] = data[i*4+0]
			out.Pix[i*4+3] = data[i*4+3]
		}
	default:
		channel := func(i, c int) float32 {
			if f == wgpu.TextureFormatRGBA16Float {
				return halfToFloat(binary.LittleEndian.Uint16(data[(i*4+c)*2:]))
			}
			return math.Float32frombits(binary.LittleEndian.Uint32(data[(i*4+c)*4:]))
		}
		for i := 0; i < n; i++ {
			c := common.Color{channel(i, 0), channel(i, 1), channel(i, 2), channel(i, 3)}
			if space == common.ColorSpaceSRGB {
				c = common.LinearToSRGB(c)
			}
			px := c.NRGBA()
			out.Pix[i*4+0] = px.R
			out.Pix[i*4+1] = px.G
			out.Pix[i*4+2] = px.B
			out.Pix[i*4+3] = px.A
		}
	}
	return out
}

// halfToFloat decodes an IEEE 754 binary16 value.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF
	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// subnormal
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3FF
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+112)<<23 | mant<<13)
}

// uniformStructLayout finds the layout of a uniform struct in the first source declaring it.
func uniformStructLayout(structName string, sources ...string) (shader.StructLayout, error) {
	if structName == "FrameUniforms" {
		return shader.UniformLayout(shader.FrameUniformsSource, structName)
	}
	var lastErr error
	for _, src := range sources {
		layout, err := shader.UniformLayout(src, structName)
		if err == nil {
			return layout, nil
		}
		lastErr = err
	}
	return shader.StructLayout{}, lastErr
}

// mergeBindings combines the resource declarations of both stages, keeping one entry per
// group and binding.
func mergeBindings(vertex, fragment []shader.Binding) []shader.Binding {
	seen := make(map[[2]int]bool)
	var out []shader.Binding
	for _, b := range append(append([]shader.Binding(nil), vertex...), fragment...) {
		key := [2]int{b.Group, b.Binding}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

// mergeBindGroupLayouts combines bind group layout descriptors from vertex and fragment shaders
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
