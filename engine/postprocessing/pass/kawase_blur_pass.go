package pass

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-fx/engine/resolution"
)

// KernelSize selects the offset sequence of a Kawase blur.
type KernelSize int

const (
	KernelSizeVerySmall KernelSize = iota
	KernelSizeSmall
	KernelSizeMedium
	KernelSizeLarge
	KernelSizeVeryLarge
	KernelSizeHuge
)

// kernelPresets holds the per-iteration tap offsets of each kernel size.
var kernelPresets = [][]float32{
	{0, 0},
	{0, 1, 1},
	{0, 1, 1, 2},
	{0, 1, 2, 2, 3},
	{0, 1, 2, 3, 4, 4, 5},
	{0, 1, 2, 3, 4, 5, 7, 8, 9, 10},
}

// Sequence returns the offsets applied by successive iterations. Unknown sizes use Large.
//
// Returns:
//   - []float32: the offset of each iteration
func (k KernelSize) Sequence() []float32 {
	if k < KernelSizeVerySmall || int(k) >= len(kernelPresets) {
		k = KernelSizeLarge
	}
	return slices.Clone(kernelPresets[k])
}

// kawaseBlurPass is the implementation of the KawaseBlurPass interface.
type kawaseBlurPass struct {
	*Base
	mu *sync.Mutex

	blurMaterial material.Material
	copyMaterial material.Material
	targetA      renderer.RenderTarget
	targetB      renderer.RenderTarget
	res          resolution.Resolution
	kernelSize   KernelSize
	stopDrive    func()
}

// KawaseBlurPass blurs by repeatedly applying a four-tap kernel with growing offsets across two
// reduced resolution targets. Render copies the result into the output buffer.
type KawaseBlurPass interface {
	Blur

	// KernelSize retrieves the kernel size class.
	KernelSize() KernelSize

	// SetKernelSize sets the kernel size class.
	SetKernelSize(size KernelSize)

	// Scale retrieves the tap offset multiplier.
	Scale() float32

	// SetScale sets the tap offset multiplier.
	SetScale(scale float32)

	// Resolution retrieves the resolution that sizes the blur targets.
	Resolution() resolution.Resolution
}

var _ KawaseBlurPass = &kawaseBlurPass{}

// NewKawaseBlurPass creates a Kawase blur at half resolution with the Large kernel.
//
// Parameters:
//   - options: KawaseBlurPassBuilderOption functions to configure the pass
//
// Returns:
//   - KawaseBlurPass: the blur pass
func NewKawaseBlurPass(options ...KawaseBlurPassBuilderOption) KawaseBlurPass {
	p := &kawaseBlurPass{
		Base:         NewBase("KawaseBlurPass", nil, nil),
		mu:           &sync.Mutex{},
		blurMaterial: material.NewKawaseBlurMaterial(),
		copyMaterial: material.NewCopyMaterial(),
		res:          resolution.NewResolution("KawaseBlurPass.Resolution", resolution.WithScale(0.5)),
		kernelSize:   KernelSizeLarge,
	}
	for _, opt := range options {
		opt(p)
	}
	p.allocate(common.PixelTypeUnsignedByte, common.ColorSpaceLinear)
	p.stopDrive = p.res.Drive(resizeFunc(p.resize))
	return p
}

// allocate replaces both blur targets. Requires exclusive access to the targets.
func (p *kawaseBlurPass) allocate(pixelType common.PixelType, cs common.ColorSpace) {
	size := p.res.Size()
	if p.targetA != nil {
		p.targetA.Dispose()
		p.targetB.Dispose()
	}
	p.targetA = newLocalTarget("KawaseBlur.TargetA", size, pixelType, cs)
	p.targetB = newLocalTarget("KawaseBlur.TargetB", size, pixelType, cs)
}

func (p *kawaseBlurPass) resize(width, height int) {
	p.mu.Lock()
	a, b := p.targetA, p.targetB
	p.mu.Unlock()
	a.SetSize(width, height)
	b.SetSize(width, height)
	base := p.res.BaseSize()
	material.SetKawaseTexelSize(p.blurMaterial, base.Width, base.Height)
}

func (p *kawaseBlurPass) KernelSize() KernelSize {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kernelSize
}

func (p *kawaseBlurPass) SetKernelSize(size KernelSize) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kernelSize = size
}

func (p *kawaseBlurPass) Scale() float32 {
	return p.blurMaterial.Uniform("scale").Float()
}

func (p *kawaseBlurPass) SetScale(scale float32) {
	p.blurMaterial.Uniform("scale").SetFloat(scale)
}

func (p *kawaseBlurPass) Resolution() resolution.Resolution {
	return p.res
}

func (p *kawaseBlurPass) Texture() common.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.kernelSize.Sequence())%2 == 1 {
		return p.targetA.Texture()
	}
	return p.targetB.Texture()
}

func (p *kawaseBlurPass) Blur(r renderer.Renderer, input renderer.RenderTarget) (common.Texture, error) {
	p.mu.Lock()
	sequence := p.kernelSize.Sequence()
	a, b := p.targetA, p.targetB
	p.mu.Unlock()

	previous := input
	for i, kernel := range sequence {
		buffer := a
		if i&1 == 1 {
			buffer = b
		}
		p.blurMaterial.Uniform("kernel").SetFloat(kernel)
		bindTexture(p.blurMaterial, material.UniformInputBuffer, previous.Texture())
		r.SetRenderTarget(buffer)
		if err := r.DrawFullscreen(p.blurMaterial); err != nil {
			return nil, err
		}
		previous = buffer
	}
	return previous.Texture(), nil
}

func (p *kawaseBlurPass) Render(r renderer.Renderer, input, output renderer.RenderTarget, _ float32, _ bool) error {
	tex, err := p.Blur(r, input)
	if err != nil {
		return err
	}
	bindTexture(p.copyMaterial, material.UniformInputBuffer, tex)
	r.SetRenderTarget(p.Destination(output))
	return r.DrawFullscreen(p.copyMaterial)
}

func (p *kawaseBlurPass) SetSize(width, height int) {
	p.res.SetBaseSize(width, height)
	material.SetKawaseTexelSize(p.blurMaterial, width, height)
}

func (p *kawaseBlurPass) Initialize(r renderer.Renderer, _ bool, frameBufferType common.PixelType) error {
	pixelType, cs := targetFormat(r, frameBufferType)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.targetA.PixelType() != pixelType || p.targetA.ColorSpace() != cs {
		p.allocate(pixelType, cs)
	}
	return nil
}

func (p *kawaseBlurPass) Dispose() {
	p.Base.Dispose()
	p.stopDrive()
	p.blurMaterial.Dispose()
	p.copyMaterial.Dispose()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetA.Dispose()
	p.targetB.Dispose()
}
