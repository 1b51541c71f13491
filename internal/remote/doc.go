// Package remote defines the narrow client surface of the orchestration
// server consumed by the worker runtime: batch polling for work items, lease
// extension, and result reporting. The runtime core depends only on the API
// interface; HTTPClient is the REST implementation used in production.
package remote
