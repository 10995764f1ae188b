// Package session manages cross-organization session handoffs. A handoff is
// a time-boxed HS256 token naming the session and the agent pair; the
// receiving side verifies the token before taking over the session. Expired
// handoffs are reaped by a periodic sweep on the shared scheduler.
package session
