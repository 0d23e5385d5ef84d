// Package influxdb records climate telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring.
//
// # Measurements
//
//   - climate_system: outdoor_temperature, water_pressure; tags system_id, mode
//   - climate_zone: room temperature, setpoint, humidity, active; tags system_id, zone_index, zone_name, operation_mode, heating_state
//   - climate_dhw: tank_temperature, set_point; tags system_id, dhw_index, operation_mode
//   - device_energy: value, duration_seconds at each bucket start; tags device_uuid, system_id, operation_mode, energy_type, value_type, resolution
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSystem(sys)
//
// # Error Handling
//
// Writes are non-blocking and batch errors are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
