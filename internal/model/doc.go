// Package model provides the shared data types for Nature's routing layer.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal. This keeps the data model
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Meta identifiers have one canonical string form: "<type>:<key>:<version>"
//   - Cached values are handed out as clones, never shared
//   - All JSON tags use snake_case
package model
