// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [RowSource]: Reads rows above a watermark from a local table
//   - [Authenticator]: Exchanges credentials for a bearer token
//   - [RemoteClient]: Existence check and create/edit against the remote service
//   - [StateRepository]: Persists and loads sync state
//   - [SyncObserver]: Receives per-row and per-run events (metrics)
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (SQL, HTTP, file system, zerolog, etc.).
package ports
