// Package coordinator implements the task coordinator: it owns the task
// records, matches submitted tasks against the node registry, drives the
// task state machine (pending → failed | processing → completed) and
// schedules the fixed-delay completions that return assigned nodes to
// online. On the first transition to completed it writes an audit fragment
// to the memory surface.
//
// Assignment failure is reported through task status and a task:failed
// event, never through a returned error; callers observe terminal status or
// subscribe to the bus.
package coordinator
