// Package domain contains the core domain entities and value objects for rowship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, SQL, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Row]: One record of a local table with its columns in declaration order
//   - [Token]: A bearer credential and the instant it was issued
//   - [State]: Persistent sync progress (current token, per-table watermarks)
//   - [TableMapping]: A local table, its remote object and the object's [ObjectPolicy]
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
