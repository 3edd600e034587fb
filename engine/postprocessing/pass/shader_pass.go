package pass

import (
	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// shaderPass is the implementation of the ShaderPass interface.
type shaderPass struct {
	*Base

	material material.Material
	inputKey string
}

// ShaderPass draws a fullscreen material that reads the input buffer and writes the output buffer.
type ShaderPass interface {
	Pass

	// Material retrieves the fullscreen material.
	Material() material.Material

	// InputKey retrieves the texture uniform the input buffer is bound to.
	InputKey() string
}

var _ ShaderPass = &shaderPass{}

// NewShaderPass creates a pass drawing m. An empty inputKey binds the input buffer to inputBuffer.
//
// Parameters:
//   - m: the fullscreen material
//   - inputKey: the texture uniform receiving the input buffer
//
// Returns:
//   - ShaderPass: the shader pass
func NewShaderPass(m material.Material, inputKey string) ShaderPass {
	return &shaderPass{
		Base:     NewBase("ShaderPass", nil, nil),
		material: m,
		inputKey: common.Coalesce(inputKey, material.UniformInputBuffer),
	}
}

func (p *shaderPass) Material() material.Material {
	return p.material
}

func (p *shaderPass) InputKey() string {
	return p.inputKey
}

func (p *shaderPass) SetDepthTexture(t renderer.DepthTexture) {
	p.Base.SetDepthTexture(t)
	if u := p.material.Uniform(material.UniformDepthBuffer); u != nil {
		u.SetTexture(depthHandle(t))
	}
}

func (p *shaderPass) Render(r renderer.Renderer, input, output renderer.RenderTarget, _ float32, _ bool) error {
	if input != nil {
		bindTexture(p.material, p.inputKey, input.Texture())
	}
	r.SetRenderTarget(p.Destination(output))
	return r.DrawFullscreen(p.material)
}

func (p *shaderPass) Dispose() {
	p.Base.Dispose()
	p.material.Dispose()
}

// bindTexture stores tex in the texture uniform key of m, adding the uniform if needed.
func bindTexture(m material.Material, key string, tex common.Texture) {
	if u := m.Uniform(key); u != nil {
		u.SetTexture(tex)
		return
	}
	m.SetUniform(key, material.TextureUniform(tex))
}

// depthHandle converts a possibly nil depth texture to a texture handle without a typed nil.
func depthHandle(t renderer.DepthTexture) common.Texture {
	if t == nil {
		return nil
	}
	return t
}
