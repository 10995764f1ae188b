// Package router implements the channel registry and the multiplex router
// moving tasks between tenant organizations. Channels are keyed by the
// deterministic (source, target, type) triple; routing always probes the
// agent2agent channel type, queues tasks on a single global FIFO when no
// active channel matches, and drains that whole queue whenever any channel
// is resumed. Delivered messages are written to the memory surface as audit
// fragments linked to the task-completion fragment when one exists.
package router
