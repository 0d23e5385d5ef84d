// Package climatetest provides payload fixtures for tests of packages that
// consume the climate graph.
package climatetest

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// SystemJSON returns a valid raw system object with one zone, one circuit
// and one hot water unit.
func SystemJSON(id string, outdoor float64) string {
	return fmt.Sprintf(`{
  "id": %q,
  "status": {"online": true},
  "devices": [],
  "has_ownership": true,
  "system_control_state": {"control_state": {
    "zones": [{
      "name": "Living", "index": 0, "active": true,
      "current_room_temperature": 20.5, "current_special_function": "NONE",
      "desired_room_temperature_setpoint": 21.0, "manual_mode_setpoint": 20.0,
      "heating_operation_mode": "TIME_CONTROLLED", "heating_state": "HEATING_UP",
      "humidity": 44.0, "set_back_temperature": 17.0, "time_windows": {}
    }],
    "circuits": [{
      "index": 0, "circuit_state": "HEATING", "current_circuit_flow_temperature": 33.0,
      "heating_curve": 0.6, "is_cooling_allowed": false, "min_flow_temperature_setpoint": 20.0,
      "mixer_circuit_type_external": "HEATING", "set_back_mode_enabled": false, "zones": [0]
    }],
    "domestic_hot_water": [{
      "index": 255, "current_dhw_tank_temperature": 47.5, "current_special_function": "REGULAR",
      "max_set_point": 70.0, "min_set_point": 35.0, "operation_mode": "TIME_CONTROLLED",
      "set_point": 50.0, "time_windows": {}
    }],
    "general": {"outdoor_temperature": %s, "system_water_pressure": 1.6, "system_mode": "REGULAR"}
  }}
}`, id, formatFloat(outdoor))
}

// DeviceJSON returns a raw device object carrying one daily energy series
// of two buckets totalling 2750.5.
func DeviceJSON(uuid string) string {
	return fmt.Sprintf(`{
  "device_uuid": %q,
  "name": "",
  "product_name": "aroTHERM plus",
  "ebus_id": "HMU00",
  "article_number": "0010021118",
  "device_serial_number": "21223300202609620938006536N2",
  "device_type": "HEAT_PUMP",
  "first_data": "2023-01-01T00:00:00Z",
  "last_data": "2023-06-03T00:00:00Z",
  "data": [{
    "operation_mode": "HEATING",
    "energy_type": "CONSUMED_ELECTRICAL_ENERGY",
    "value_type": "CONSUMED_ELECTRICAL_ENERGY",
    "resolution": "DAY",
    "start_date": "2023-06-01T00:00:00Z",
    "end_date": "2023-06-03T00:00:00Z",
    "data": [
      {"start_date": "2023-06-01T00:00:00Z", "end_date": "2023-06-02T00:00:00Z", "value": 1500.0},
      {"start_date": "2023-06-02T00:00:00Z", "end_date": "2023-06-03T00:00:00Z", "value": 1250.5}
    ]
  }]
}`, uuid)
}

// BundleJSON returns an ingest bundle for systemID with one device per uuid.
func BundleJSON(systemID string, deviceUUIDs ...string) []byte {
	devices := make([]string, len(deviceUUIDs))
	for i, uuid := range deviceUUIDs {
		devices[i] = DeviceJSON(uuid)
	}
	return []byte(fmt.Sprintf(`{"system": %s, "devices": [%s]}`,
		SystemJSON(systemID, 5.5), strings.Join(devices, ",")))
}

// Decode unmarshals a fixture into a map, failing the test on error.
func Decode(t testing.TB, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return m
}

// System builds the SystemJSON fixture for id.
func System(t testing.TB, id string) *climate.System {
	t.Helper()
	sys, err := climate.NewSystem(Decode(t, SystemJSON(id, 5.5)))
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	return sys
}

// Device builds the DeviceJSON fixture for uuid under sys.
func Device(t testing.TB, sys *climate.System, uuid string) *climate.Device {
	t.Helper()
	dev, err := climate.NewDevice(sys, Decode(t, DeviceJSON(uuid)))
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	return dev
}

func formatFloat(f float64) string {
	b, _ := json.Marshal(f) //nolint:errcheck // finite floats always marshal
	return string(b)
}
