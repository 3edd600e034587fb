package shader

import "maps"

// ShaderBuilderOption is a functional option for configuring a Shader.
type ShaderBuilderOption func(*shader)

// WithDefines sets the defines visible to @oxy:ifdef blocks while pre-processing.
//
// Parameters:
//   - defines: the define names and values
//
// Returns:
//   - ShaderBuilderOption: a function that applies the defines to a shader
func WithDefines(defines map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		if s.defines == nil {
			s.defines = make(map[string]string, len(defines))
		}
		maps.Copy(s.defines, defines)
	}
}

// WithPreProcessor replaces the default pre-processor.
//
// Parameters:
//   - pp: the pre-processor to use
//
// Returns:
//   - ShaderBuilderOption: a function that applies the pre-processor to a shader
func WithPreProcessor(pp PreProcessor) ShaderBuilderOption {
	return func(s *shader) {
		s.pp = pp
	}
}
