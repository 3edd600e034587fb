package postprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrConvolutionConflict is returned when more than one merged effect samples neighboring pixels.
	ErrConvolutionConflict = errors.New("postprocessing: effects cannot be merged because more than one of them requires convolution")

	// ErrUVConvolutionConflict is returned when a convolution effect is merged with a UV transform.
	ErrUVConvolutionConflict = errors.New("postprocessing: a convolution effect cannot be merged with an effect that transforms UV coordinates")

	// ErrMissingHook is returned for an effect fragment shader that declares neither mainImage nor mainUv.
	ErrMissingHook = errors.New("postprocessing: effect declares neither mainImage nor mainUv")

	// ErrMissingFragmentShader is returned for an effect without a fragment shader.
	ErrMissingFragmentShader = errors.New("postprocessing: effect has no fragment shader")

	// ErrInvalidHook is returned when a hook is declared with an unexpected signature.
	ErrInvalidHook = errors.New("postprocessing: effect hook has an invalid signature")

	// ErrShaderValidation is returned when the merged program fails WGSL validation.
	ErrShaderValidation = errors.New("postprocessing: merged shader failed validation")

	// ErrNoRenderer is returned by NewComposer without a renderer.
	ErrNoRenderer = errors.New("postprocessing: composer requires a renderer")

	// ErrComposerDisposed is returned when using a composer after Dispose.
	ErrComposerDisposed = errors.New("postprocessing: composer has been disposed")

	// ErrPassIndex is returned by AddPassAt for an index outside the pass list.
	ErrPassIndex = errors.New("postprocessing: pass index out of range")
)

// CompositionError reports an effect that could not be merged into an EffectPass program.
type CompositionError struct {
	// Effect is the name of the offending effect.
	Effect string

	// Err is one of the composition sentinel errors, possibly wrapped with detail.
	Err error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Effect)
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

// compositionError wraps err for the named effect.
func compositionError(effect string, err error) error {
	return &CompositionError{Effect: effect, Err: err}
}
