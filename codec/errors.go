package codec

import "errors"

// ErrCorrupted is returned by any FastUpdates/FastSnapshot decoder that
// finds a structurally invalid stream (truncated arena, bad length prefix,
// out-of-range arena index).
var ErrCorrupted = errors.New("codec: corrupted stream")
