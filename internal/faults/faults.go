// Package faults defines the error classes shared by the oracle core.
//
// Packages wrap these sentinels so adapters (HTTP, gRPC, CLI) can pick a
// response with errors.Is instead of matching individual errors.
package faults

import "errors"

// #region classes

var (
	// ErrInvalidArgument marks configuration errors: unknown casting method,
	// missing seed, out-of-range number, malformed lines or binary pattern.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks lookups that reference nothing (unknown name, unknown reading id).
	ErrNotFound = errors.New("not found")

	// ErrData marks hard data errors such as missing or incomplete canonical bundles.
	ErrData = errors.New("data error")

	// ErrUnavailable marks transient environmental failures (remote entropy down,
	// timeout, circuit open). Callers are expected to substitute another method.
	ErrUnavailable = errors.New("unavailable")
)

// #endregion classes

// #region class-of

// Class returns the name of the class err belongs to, or "internal".
func Class(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrData):
		return "data"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}

// #endregion class-of
