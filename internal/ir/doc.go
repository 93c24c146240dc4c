// Package ir provides the canonical value and record types shared by the
// bsync packages.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// IR the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers. Event data that is
//     persisted or hashed must be representable as an IRValue.
//   - Logical clocks (seq) only, never wall-clock timestamps.
//   - All JSON tags use snake_case.
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing.
package ir
