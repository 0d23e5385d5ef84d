// Package ingest turns raw JSON bundles into validated climate graphs and
// fans them out to the configured sinks.
//
// A bundle is a JSON object:
//
//	{"system": {...}, "devices": [{..., "data": [...]}, ...]}
//
// The system is built first with climate.NewSystem, then every device
// against it. Any validation failure rejects the whole bundle; nothing is
// stored or published for it. Accepted bundles go to:
//   - the snapshot Store (retried with exponential backoff)
//   - the state Publisher (MQTT and the websocket hub)
//   - the Telemetry writer (InfluxDB)
//   - the Auditor, which also records rejections
//
// Every sink is optional.
package ingest
