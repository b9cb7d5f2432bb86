// Package session coordinates concurrent access to workflow sessions.
// A Manager serializes turns per session with ref-counted in-process locks
// and, optionally, a distributed locker for multi-replica deployments.
package session
