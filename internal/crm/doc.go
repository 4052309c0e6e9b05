// Package crm talks to the CRM's REST API.
//
// The Gateway interface is the boundary the reconciliation core depends on:
// the incremental sync feed (FetchChanges/AckChanges) plus the handful of
// entity reads and writes the business rules need. Client is the HTTP
// implementation; retry, backoff, and timeout policy live here so callers
// can treat every gateway call as a single blocking operation.
package crm
