// Package implementors implements the domain layer for the implementor index.
//
// This package follows the same rules as the other domain packages:
//   - Contains only pure Go code with standard library imports (no external dependencies)
//   - Defines value objects (ItemRef, Relation, Record) and the ModuleIndex entity
//   - Has no knowledge of infrastructure concerns (file I/O, codecs, databases)
//
// # Core Types
//
// Record is one (interface, implementing type) relationship. It is immutable once
// built; use NewRecord or RecordBuilder for construction.
//
// ModuleIndex groups the records surfaced by one documented module. Module names are
// unique within a build and must be non-empty (see ValidateModuleName).
//
// DuplicatePolicy decides what happens when the same module is registered twice
// before a consumer has attached.
//
// Intake is the function shape a consumer exposes to receive module registrations.
package implementors
