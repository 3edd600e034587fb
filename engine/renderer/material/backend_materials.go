package material

// NewQuadMaterial creates the material the GPU backend draws scene quads with. Quads arrive as
// instances carrying a uv rectangle, a depth and a color, drawn as four-vertex triangle strips.
//
// Returns:
//   - Material: the quad material
func NewQuadMaterial() Material {
	return NewShaderMaterial("quads", quadSource,
		WithVertexShader(quadSource),
		WithRenderState(SceneRenderState()),
	)
}

// NewDepthReadbackMaterial creates a material that copies the depthBuffer texture into the red
// channel of a float target.
//
// Returns:
//   - Material: the depth readback material
func NewDepthReadbackMaterial() Material {
	return NewShaderMaterial("depth-readback", depthReadbackSource,
		WithUniform(UniformDepthBuffer, DepthTextureUniform(nil)),
	)
}
