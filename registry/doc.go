// Package registry implements the organization and node registries.
//
// Organizations is a plain upsert registry of tenant metadata. Nodes tracks
// worker records together with a per-node recurring liveness timer: a node
// that misses two heartbeat intervals is marked offline, and a heartbeat
// flips an offline node back to online. Both registries publish lifecycle
// events on the shared core.Bus and own their maps exclusively; all other
// components read node and organization state through their methods.
package registry
