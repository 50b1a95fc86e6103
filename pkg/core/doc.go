// Package core defines the shared language of the leapquery pipeline.
//
// This package contains:
//   - Schema entities (Table, Column, JoinEdge, ColumnRef)
//   - Intent and resolution types produced by the intent resolver
//   - The query plan, the canonical intermediate representation
//   - Validation diagnostics and correction attempts
//   - The caller-facing Result and persisted MemoryRecord
//   - The typed error taxonomy shared by every stage
//
// pkg/core imports only the standard library.
// All other packages depend on core, not the reverse.
package core
