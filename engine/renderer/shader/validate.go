package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles WGSL source to SPIR-V and discards the result, reporting any
// parse or type error. It runs entirely on the CPU and needs no device.
//
// Parameters:
//   - source: the WGSL source to validate
//
// Returns:
//   - error: the compiler diagnostic, or nil if the source is valid
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("invalid WGSL: %w", err)
	}
	return nil
}

// CompileSPIRV compiles WGSL source to little-endian SPIR-V words.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - []uint32: the SPIR-V module
//   - error: the compiler diagnostic on failure
func CompileSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
