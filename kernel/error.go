package kernel

// Error describes a kernel error. Kernel errors are declared as package-level
// pointers to Error and compared by identity. They must not be allocated on
// demand: code paths such as the frame allocator run before the heap exists.
type Error struct {
	Module  string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Module == "" {
		return e.Message
	}
	return e.Module + ": " + e.Message
}
