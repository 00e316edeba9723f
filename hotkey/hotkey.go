package hotkey

// Label names the global validate chord.
const Label = "Ctrl+Shift+V"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
