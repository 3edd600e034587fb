package effect

import _ "embed"

//go:embed assets/bloom.wgsl
var bloomSource string

//go:embed assets/vignette.wgsl
var vignetteSource string

//go:embed assets/tone_mapping.wgsl
var toneMappingSource string

//go:embed assets/brightness_contrast.wgsl
var brightnessContrastSource string

//go:embed assets/hue_saturation.wgsl
var hueSaturationSource string

//go:embed assets/noise.wgsl
var noiseSource string

//go:embed assets/pixelation.wgsl
var pixelationSource string

//go:embed assets/chromatic_aberration.wgsl
var chromaticAberrationSource string

//go:embed assets/chromatic_aberration_vertex.wgsl
var chromaticAberrationVertexSource string

//go:embed assets/depth.wgsl
var depthSource string

//go:embed assets/color_depth.wgsl
var colorDepthSource string

//go:embed assets/scanline.wgsl
var scanlineSource string

//go:embed assets/sepia.wgsl
var sepiaSource string
