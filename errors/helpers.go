package errors

// WrapOpComponent provides a convenience helper to wrap errors with consistent Op and Component propagation.
// It avoids repetition when creating structured errors throughout the codebase.
// If err is nil, returns nil.
func WrapOpComponent(err error, op Operation, component string) error {
	if err == nil {
		return nil
	}
	// Preserve an existing BridgeError's code when re-wrapping
	if bridgeErr, ok := err.(*BridgeError); ok {
		return &BridgeError{
			Op:        op,
			Component: component,
			Code:      bridgeErr.Code,
			Err:       err,
		}
	}
	return NewWithComponent(op, component, err)
}
