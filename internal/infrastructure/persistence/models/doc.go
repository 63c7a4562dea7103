// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: shared identity, timestamp and version columns
//   - levy.go: levy setups and levy transactions
//   - market.go: markets, traders, building type assignments and officers
//   - audit.go: the audit log written by the levy event handlers
package models
