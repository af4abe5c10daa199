package errors

// MultiError collects errors as options or validations are applied.
type MultiError []error

// Append adds an error to the collection. Nil errors are ignored.
func (e MultiError) Append(err error) MultiError {
	if err == nil {
		return e
	}
	return append(e, err)
}

// Join combines all collected errors into a single error.
//
// Returns nil if the collection is empty.
func (e MultiError) Join() error {
	if len(e) == 0 {
		return nil
	}
	return Join(e...)
}

// Wrap joins the collected errors and wraps them with a message.
//
// Returns nil if the collection is empty.
func (e MultiError) Wrap(msg string) error {
	if len(e) == 0 {
		return nil
	}
	return Wrap(e.Join(), msg)
}

// Wrapf joins the collected errors and wraps them with a formatted message.
//
// Returns nil if the collection is empty.
func (e MultiError) Wrapf(msg string, args ...any) error {
	if len(e) == 0 {
		return nil
	}
	return Wrapf(e.Join(), msg, args...)
}
