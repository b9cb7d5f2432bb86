/*
Package ports defines the driven ports (interfaces) for the taxflow engine.

These interfaces decouple the workflow from external implementations,
allowing it to run against different storage backends, the live municipal
gateway or its deterministic fake, and pluggable error sinks.

# Key Interfaces

  - StateStore: persists and loads session State between turns.
  - TaxGateway: the municipal tax service facade with its error taxonomy.
  - DistributedLocker: distributed locking for multi-replica deployments.
  - ErrorReporter: best-effort sink for intercepted error reports.
*/
package ports
