package climate

import (
	"encoding/json"
	"testing"
)

// endToEndPayload is the smallest payload that exercises the whole system path.
const endToEndPayload = `{
  "id": "sys1",
  "status": {"online": true},
  "devices": [],
  "has_ownership": true,
  "system_control_state": {"control_state": {
    "zones": [{
      "name": "Living", "index": 0, "active": true,
      "current_room_temperature": 21.0, "current_special_function": "NONE",
      "desired_room_temperature_setpoint": 21.5, "manual_mode_setpoint": 20.0,
      "heating_operation_mode": "TIME_CONTROLLED", "heating_state": "IDLE",
      "humidity": 45.0, "set_back_temperature": 17.0, "time_windows": {}
    }],
    "circuits": [],
    "domestic_hot_water": [],
    "general": {"outdoor_temperature": 5.2, "system_water_pressure": 1.4, "system_mode": "HEATING"}
  }}
}`

// fullPayload has every collection populated.
const fullPayload = `{
  "id": "sys-42",
  "status": {"online": true, "error": false},
  "devices": [{"device_uuid": "dev-1", "product_name": "aroTHERM plus"}],
  "has_ownership": false,
  "current_system": {"primary_heat_generator": "HEAT_PUMP"},
  "system_configuration": {"continuous_heating_start_setpoint": -26},
  "gateway": {"serial_number": "21223300202609620938006536N2"},
  "system_control_state": {"control_state": {
    "zones": [
      {
        "name": "Ground Floor", "index": 0, "active": true,
        "current_room_temperature": 20.5, "current_special_function": "QUICK_VETO",
        "desired_room_temperature_setpoint": 22.0, "manual_mode_setpoint": 21.0,
        "heating_operation_mode": "MANUAL", "heating_state": "HEATING_UP",
        "humidity": 51.0, "set_back_temperature": 16.0,
        "time_windows": {"monday": [{"start_time": 360, "end_time": 1320, "setpoint": 21.0}]}
      },
      {
        "name": "Upstairs", "index": 1, "active": false,
        "current_room_temperature": 18.0, "current_special_function": "HOLIDAY",
        "desired_room_temperature_setpoint": 19.0, "manual_mode_setpoint": 19.0,
        "heating_operation_mode": "OFF", "heating_state": "IDLE",
        "humidity": 48.5, "set_back_temperature": 15.0, "time_windows": {}
      }
    ],
    "circuits": [{
      "index": 0, "circuit_state": "HEATING", "current_circuit_flow_temperature": 34.5,
      "heating_curve": 0.6, "is_cooling_allowed": false, "min_flow_temperature_setpoint": 20.0,
      "mixer_circuit_type_external": "HEATING", "set_back_mode_enabled": true,
      "zones": [0, 1]
    }],
    "domestic_hot_water": [{
      "index": 255, "current_dhw_tank_temperature": 48.0, "current_special_function": "REGULAR",
      "max_set_point": 70.0, "min_set_point": 35.0, "operation_mode": "TIME_CONTROLLED",
      "set_point": 50.0, "time_windows": {"sunday": []}
    }],
    "general": {"outdoor_temperature": -3.5, "system_water_pressure": 1.9, "system_mode": "REGULAR"}
  }}
}`

const devicePayload = `{
  "device_uuid": "a1b2c3",
  "name": "",
  "product_name": "sensoHOME",
  "ebus_id": "VR_92",
  "article_number": "0020260914",
  "device_serial_number": "21223300202609140938005536N2",
  "device_type": "CONTROL",
  "first_data": "2023-01-01T00:00:00Z",
  "last_data": "2023-06-30T23:00:00+02:00"
}`

const deviceDataPayload = `{
  "operation_mode": "DOMESTIC_HOT_WATER",
  "energy_type": "CONSUMED_ELECTRICAL_ENERGY",
  "value_type": "CONSUMED_ELECTRICAL_ENERGY",
  "resolution": "DAY",
  "start_date": "2023-06-01T00:00:00Z",
  "end_date": "2023-06-03T00:00:00Z",
  "data": [
    {"start_date": "2023-06-01T00:00:00Z", "end_date": "2023-06-02T00:00:00Z", "value": 1500.0},
    {"start_date": "2023-06-02T00:00:00Z", "end_date": "2023-06-03T00:00:00Z", "value": 1250.5}
  ]
}`

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding test payload: %v", err)
	}
	return m
}

// controlStateOf returns the control_state map of a decoded payload for editing.
func controlStateOf(t *testing.T, raw map[string]any) map[string]any {
	t.Helper()
	root, ok := raw["system_control_state"].(map[string]any)
	if !ok {
		t.Fatal("payload has no system_control_state")
	}
	cs, ok := root["control_state"].(map[string]any)
	if !ok {
		t.Fatal("payload has no control_state")
	}
	return cs
}

// firstRecord returns element 0 of a control_state collection for editing.
func firstRecord(t *testing.T, raw map[string]any, collection string) map[string]any {
	t.Helper()
	list, ok := controlStateOf(t, raw)[collection].([]any)
	if !ok || len(list) == 0 {
		t.Fatalf("payload has no %s records", collection)
	}
	return list[0].(map[string]any)
}

func mustSystem(t *testing.T, payload string) *System {
	t.Helper()
	sys, err := NewSystem(decode(t, payload))
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	return sys
}
