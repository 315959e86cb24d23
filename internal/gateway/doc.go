// Package gateway implements the request dispatch pipeline for the SMS
// gateway.
//
// Each inbound request flows through four stages: the route table matches
// method and path, the permission gate checks the authenticated caller,
// the transformer produces an enriched copy of the request, and the
// route's handler is invoked. The HTTP adapter in this package converts
// between net/http and the pipeline's request model and maps pipeline
// errors to HTTP statuses: unknown routes become 404, missing callers
// 401, missing permissions 403, and upstream failures 502.
package gateway
