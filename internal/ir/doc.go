// Package ir provides the shared metadata and row types for qcase.
//
// This package contains type definitions and small value helpers only. Every
// other internal package imports ir; ir imports nothing internal, which keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Association descriptors are immutable values; resolvers keep their own
//     derived state and never write back into configuration
//   - Columns and descriptors are ordered slices, never maps, because
//     declaration order drives rendering and merge order
//   - Rows are plain map[string]any; dotted keys are exploded into nested maps
//     before they leave a terminal operation
//   - All JSON tags use snake_case
package ir
