package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base for every climate topic.
//
// Hierarchy:
//
//	graylogic/climate/ingest/system                    raw bundles in
//	graylogic/climate/system/{id}/state                normalised system (retained)
//	graylogic/climate/system/{id}/zone/{index}/state   one zone (retained)
//	graylogic/climate/event/{type}                     ingest events
//	graylogic/climate/status                           service status and LWT
const TopicPrefix = "graylogic/climate"

// Topics provides builders for climate MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.SystemState("sys-7f3a")
//	// Returns: "graylogic/climate/system/sys-7f3a/state"
type Topics struct{}

// IngestSystem returns the topic raw system bundles are published on.
//
// Example: graylogic/climate/ingest/system
func (Topics) IngestSystem() string {
	return TopicPrefix + "/ingest/system"
}

// SystemState returns the retained state topic for one system.
//
// Example: graylogic/climate/system/sys-7f3a/state
func (Topics) SystemState(systemID string) string {
	return fmt.Sprintf("%s/system/%s/state", TopicPrefix, systemID)
}

// ZoneState returns the retained state topic for one zone of a system.
//
// Example: graylogic/climate/system/sys-7f3a/zone/0/state
func (Topics) ZoneState(systemID string, index int) string {
	return fmt.Sprintf("%s/system/%s/zone/%d/state", TopicPrefix, systemID, index)
}

// Event returns the topic for service events.
//
// Example: graylogic/climate/event/ingest_rejected
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// Status returns the service status topic, also used for the LWT.
//
// Example: graylogic/climate/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// CheckLevel reports ErrInvalidTopic when s cannot be used as a single
// topic level: it is empty, spans levels with '/', or contains a wildcard
// or NUL. Identifiers taken from payloads must pass before they are
// placed in a topic.
func CheckLevel(s string) error {
	if s == "" || strings.ContainsAny(s, "/+#\x00") {
		return fmt.Errorf("%w: %q is not a valid topic level", ErrInvalidTopic, s)
	}
	return nil
}
