package renderer

import "errors"

var (
	// ErrCubeTarget is returned when a cube face is selected on a target that is not a cube map.
	ErrCubeTarget = errors.New("renderer: cube face selected on a non-cube render target")

	// ErrMipLevel is returned when a mip level other than zero is selected. Targets have a single level.
	ErrMipLevel = errors.New("renderer: render targets have a single mip level")

	// ErrDisposed is returned by every drawing call after Dispose.
	ErrDisposed = errors.New("renderer: renderer has been disposed")

	// ErrTargetDisposed is returned when drawing into or reading from a disposed render target.
	ErrTargetDisposed = errors.New("renderer: render target has been disposed")

	// ErrContextLost is returned by drawing calls between Lose and Restore.
	ErrContextLost = errors.New("renderer: context lost")
)
