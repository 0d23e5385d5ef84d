// Package api implements the HTTP REST API and WebSocket server for the
// climate service.
//
// This package provides:
//   - Read endpoints for the latest normalised system, its zones and snapshot history
//   - An ingest endpoint for gateways that cannot publish over MQTT
//   - The ingest audit trail
//   - A WebSocket hub relaying accepted systems and rejected bundles
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The server sits beside the ingest pipeline. Reads go to the snapshot and
// audit stores; POST /api/v1/ingest runs the same pipeline as the MQTT
// subscription. A HubPublisher registered with the pipeline turns each
// outcome into a WebSocket broadcast on the system.updated or
// ingest.rejected channel.
//
// # Security
//
// With security.jwt.secret set, POST routes require an HS256 bearer token
// and WebSocket connections require a single-use ticket from
// POST /api/v1/auth/ws-ticket. Without a secret the server runs open.
//
// # Errors
//
// Every error body is {"status", "code", "message"}. Rejected payloads
// answer 422 with code validation_error and the error kind, for example
// missing_structure or invalid_enum_value.
package api
