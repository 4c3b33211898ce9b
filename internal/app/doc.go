// Package app provides the application service layer.
//
// Orchestrates use cases: capsule creation and retrieval, the daily reflection
// questionnaire, and the reveal sweep with its ticker and leader lease.
// Sits between transports (HTTP, CLI) and domain repositories. Depends on domain
// interfaces, not concrete implementations.
package app
