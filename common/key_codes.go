package common

// Key codes delivered by window key callbacks. The values match GLFW, which uses ASCII for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	Key0 = 48
	Key1 = 49
	Key2 = 50
	Key3 = 51
	Key4 = 52
	Key5 = 53
	Key6 = 54
	Key7 = 55
	Key8 = 56
	Key9 = 57

	KeyD = 68 // dynamic light resolve linking
	KeyI = 73 // image based lighting reference
	KeyK = 75 // sky
	KeyL = 76 // light resolve debugging
	KeyM = 77 // ray traced shadow metrics
	KeyO = 79 // ortho shadow resolve
	KeyP = 80 // sample frequency optimisation
	KeyR = 82 // reload tweakables

	KeySpace     = 32
	KeyEsc       = 256
	KeyBackspace = 259
	KeyF1        = 290
)
