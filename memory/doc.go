// Package memory contains concrete FragmentStore implementations. The store
// interface and Fragment type reside in the core package. Import
// github.com/hivemesh/hivemesh/core and depend on core.FragmentStore in your
// code; select an implementation (like the in-memory store below) at wiring
// time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (durable stores, searchable indexes, etc.) to be added without
// introducing dependency cycles.
package memory
