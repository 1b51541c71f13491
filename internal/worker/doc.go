// Package worker implements the client-side execution runtime: a registry of
// task executors, one poller per task type pulling work item batches from the
// orchestration server, bounded worker pools running handlers, lease renewal
// for long-running executions, and bounded-retry result reporting. The
// Supervisor owns the lifecycle of all of it for one process.
package worker
