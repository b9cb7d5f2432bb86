// Package domain holds the core types of the taxflow workflow: the session
// state with its durable and transient namespaces, the records exchanged
// with the municipal tax service, and the sentinel errors of the upstream
// error taxonomy. It has no dependencies outside the standard library.
package domain
