// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (capsule.go, response.go, sentiment.go, user.go, notify.go) hold the records
// and the capabilities the application layer consumes. No implementation code - just contracts.
package domain
