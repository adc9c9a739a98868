package lspclient

import "errors"

var (
	// ErrReadTimeout means the server produced no response within the
	// configured read window. Recoverable: the current rename fails,
	// the batch continues.
	ErrReadTimeout = errors.New("lspclient: timed out waiting for response")

	// ErrProtocol covers malformed frames, id mismatches, and absent
	// result fields.
	ErrProtocol = errors.New("lspclient: protocol error")

	// ErrNotRenameable means prepareRename declined the position.
	ErrNotRenameable = errors.New("lspclient: no renameable symbol at position")

	// ErrClosed is returned when the session is used after Close or
	// before a successful Start.
	ErrClosed = errors.New("lspclient: session is not running")
)
