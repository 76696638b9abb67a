// Package http provides HTTP handlers and middleware for the negotiation API.
//
// The router exposes the following endpoints, all operating on behalf of the
// identity the upstream gateway resolves into the `X-User-ID` header:
//   - POST /sessions: opens a negotiation session on a connection. Body:
//     {"connection_id","ttl_expires_at"?}.
//   - GET /sessions/{id}: returns the session including its outcome once
//     confirmed.
//   - POST /sessions/{id}/proposals: generates mutually free candidate
//     windows. Body: {"duration_minutes","earliest"?,"latest"?,"timezone"?,
//     "limit"?}. An optional `X-Idempotency-Key` header makes retries safe;
//     without it a key is derived from the request parameters.
//   - POST /sessions/{id}/confirm: settles the session on one candidate.
//     Body: {"candidate_index"}. Exactly one concurrent confirmation wins;
//     the rest receive 409.
//   - POST /sessions/{id}/cancel, POST /sessions/{id}/expire: caller-driven
//     terminal transitions.
//   - GET /sessions/{id}/messages: the session's exchange log.
//   - POST /notifications/{id}/resolve: marks an actionable notification as
//     handled by its recipient.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
