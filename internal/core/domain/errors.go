package domain

import "errors"

var (
	// ErrInvalidState is returned when a WorkflowState violates an invariant.
	ErrInvalidState = errors.New("invalid workflow state")

	// ErrRecursionCeiling is returned when a job has exhausted its healing
	// attempts and must be treated as permanently failed.
	ErrRecursionCeiling = errors.New("healing recursion ceiling exceeded")

	// ErrMissingToken is returned when no bearer token is available before
	// work begins.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when bearer token verification fails.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrDecryptFailed is returned when a sealed envelope cannot be opened.
	ErrDecryptFailed = errors.New("envelope decryption failed")

	// ErrCheckpointNotFound is returned when a checkpoint artifact does not
	// exist on disk.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)
