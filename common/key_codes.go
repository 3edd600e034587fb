package common

// Key codes delivered by the window key callback. They match GLFW key codes, which use ASCII
// values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyD     = 68 // D key (ASCII)
	KeyE     = 69 // E key (ASCII)
	KeyP     = 80 // P key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)

	Key1 = 49 // 1 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// DigitKey maps the keys 1 to 9 to a zero-based index.
//
// Parameters:
//   - keyCode: the key code
//
// Returns:
//   - int: the index, or -1 for any other key
func DigitKey(keyCode uint32) int {
	if keyCode < Key1 || keyCode > Key9 {
		return -1
	}
	return int(keyCode - Key1)
}
