// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package coderr

// Code classifies an error at the level callers are expected to branch on.
// It intentionally does not distinguish between call sites that produce the
// same kind of failure — see the error kinds listed in the core's error
// handling design.
type Code int

const (
	// Internal marks an error the caller cannot recover from: an invariant
	// the core itself is responsible for maintaining was violated.
	Internal Code = iota + 1
	// NotFound marks a lookup that found nothing where the caller expected
	// something (predecessor of an unknown token, an unresolved host-id...).
	NotFound
	// InvalidParams marks a caller-supplied value this package could not
	// parse or accept as-is.
	InvalidParams
	// AlreadyExists marks a collision between a new value and one already
	// recorded (a token claimed by two endpoints...).
	AlreadyExists
	// BadRequest marks a malformed request at an ambient (non-core) surface,
	// e.g. the HTTP introspection API.
	BadRequest
	// PrintHelpUsage is not a failure: it signals that command-line parsing
	// already printed usage and the caller should exit zero.
	PrintHelpUsage
)
