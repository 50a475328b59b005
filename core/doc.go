// Package core defines the domain model for indicator management.
//
// The package provides:
//   - Indicator records and their nested sub-records (actions, activity,
//     ratings, sources, campaigns, tickets)
//   - Top-level objects (TLOs) and the relationships between them
//   - The indicator type catalogue with per-type value validation
//   - The timestamp wire format shared by forms, storage and responses
//
// Types here carry no persistence or transport concerns; storage lives in
// the storage package and the business rules that combine them live in the
// service package.
package core
