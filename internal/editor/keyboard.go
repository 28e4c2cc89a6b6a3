package editor

import "strings"

// KeyEvent is a key press as the host UI reports it.
type KeyEvent struct {
	Key   string // "Delete", "Escape", "z", "y", ...
	Ctrl  bool
	Meta  bool // Cmd on macOS
	Shift bool

	// InTextInput is set while focus is in an editable field; shortcuts
	// then belong to the field.
	InTextInput bool
}

func (k KeyEvent) modifier() bool { return k.Ctrl || k.Meta }

// HandleKey applies the editor's keyboard bindings and reports whether
// the key was consumed.
func (e *Engine) HandleKey(k KeyEvent) (bool, error) {
	if k.InTextInput {
		return false, nil
	}
	switch key := strings.ToLower(k.Key); {
	case key == "delete":
		if e.selectedID == "" {
			return false, nil
		}
		return true, e.Delete(e.selectedID)
	case key == "escape":
		e.ClearSelection()
		return true, nil
	case key == "z" && k.modifier() && k.Shift:
		e.Redo()
		return true, nil
	case key == "z" && k.modifier():
		e.Undo()
		return true, nil
	case key == "y" && k.Ctrl:
		e.Redo()
		return true, nil
	}
	return false, nil
}
