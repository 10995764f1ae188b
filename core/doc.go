// Package core provides the foundational domain types and interfaces shared
// by the hivemesh coordination subsystems. It defines:
//
//   - Organizations, Nodes, Tasks and Channels (the coordinated entities)
//   - Events (tagged lifecycle variants published on the Bus)
//   - Bus (the observer registry decoupling components from subscribers)
//   - Scheduler / Clock (explicit timer abstraction so tests can advance
//     virtual time deterministically)
//   - Fragment / FragmentStore (the memory-surface audit boundary)
//
// The package intentionally keeps implementation concerns (registries,
// coordination state machines, routing, persistence) out of scope, exposing
// small interfaces so each component owns exactly its own mutable state.
package core
