// Package testutil contains helper utilities used across tests to reduce
// boilerplate: a manual scheduler for advancing virtual time
// deterministically, an event recorder capturing bus traffic, and small
// builders for nodes and tasks. These helpers are intentionally minimal and
// are not intended for production usage.
package testutil
