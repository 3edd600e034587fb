package effect

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/material"
)

// blendMode is the implementation of the BlendMode interface.
type blendMode struct {
	mu *sync.Mutex

	function BlendFunction
	opacity  *material.Uniform
	version  uint64
}

// BlendMode combines an effect's color with the color accumulated by the effects before it.
// Changing the function changes the merged program; the opacity is a uniform and does not.
type BlendMode interface {
	// Function retrieves the blend function.
	Function() BlendFunction

	// SetFunction replaces the blend function and bumps the version if it changed.
	SetFunction(fn BlendFunction)

	// Opacity retrieves the shared opacity uniform.
	//
	// Returns:
	//   - *material.Uniform: the f32 opacity uniform
	Opacity() *material.Uniform

	// SetOpacity sets the opacity value.
	SetOpacity(opacity float32)

	// Version returns a counter that changes whenever the blend function changes.
	Version() uint64
}

var _ BlendMode = &blendMode{}

// NewBlendMode creates a blend mode.
//
// Parameters:
//   - fn: the blend function
//   - opacity: the initial opacity
//
// Returns:
//   - BlendMode: the blend mode
func NewBlendMode(fn BlendFunction, opacity float32) BlendMode {
	return &blendMode{
		mu:       &sync.Mutex{},
		function: fn,
		opacity:  material.FloatUniform(opacity),
	}
}

func (b *blendMode) Function() BlendFunction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.function
}

func (b *blendMode) SetFunction(fn BlendFunction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.function == fn {
		return
	}
	b.function = fn
	b.version++
}

func (b *blendMode) Opacity() *material.Uniform {
	return b.opacity
}

func (b *blendMode) SetOpacity(opacity float32) {
	b.opacity.SetFloat(opacity)
}

func (b *blendMode) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}
