// File: internal/session/doc.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Thread-safe registry of live proxy nodes keyed by resource handle, plus
// a propagation-aware context store shared by the rest of the codebase.
// Works on Linux and Windows.
package session
