package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

// Measurement names.
const (
	MeasurementSystem       = "climate_system"
	MeasurementZone         = "climate_zone"
	MeasurementHotWater     = "climate_dhw"
	MeasurementDeviceEnergy = "device_energy"
)

// WriteSystem records one climate_system point, one climate_zone point per
// zone and one climate_dhw point per hot water unit, all stamped now.
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteSystem(sys *climate.System) {
	if !c.IsConnected() || sys == nil {
		return
	}
	for _, p := range systemPoints(sys, c.now()) {
		c.writeAPI.WritePoint(p)
	}
}

// WriteDeviceData records one device_energy point per bucket, stamped at
// the bucket start.
func (c *Client) WriteDeviceData(data *climate.DeviceData) {
	if !c.IsConnected() || data == nil {
		return
	}
	for _, p := range deviceDataPoints(data) {
		c.writeAPI.WritePoint(p)
	}
}

// systemPoints builds the points for one system snapshot. The system point
// is skipped when neither outdoor temperature nor water pressure can be
// read, since InfluxDB rejects points without fields.
func systemPoints(sys *climate.System, at time.Time) []*write.Point {
	zones := sys.Zones()
	dhw := sys.DomesticHotWater()
	points := make([]*write.Point, 0, 1+len(zones)+len(dhw))

	tags := map[string]string{"system_id": sys.ID()}
	if mode, err := sys.Mode(); err == nil && mode != "" {
		tags["mode"] = mode
	}
	fields := map[string]any{}
	if v, err := sys.OutdoorTemperature(); err == nil {
		fields["outdoor_temperature"] = v
	}
	if v, err := sys.WaterPressure(); err == nil {
		fields["water_pressure"] = v
	}
	if len(fields) > 0 {
		points = append(points, write.NewPoint(MeasurementSystem, tags, fields, at))
	}

	for _, z := range zones {
		points = append(points, write.NewPoint(MeasurementZone,
			map[string]string{
				"system_id":      sys.ID(),
				"zone_index":     strconv.Itoa(z.Index),
				"zone_name":      z.Name,
				"operation_mode": string(z.HeatingOperationMode),
				"heating_state":  string(z.HeatingState),
			},
			map[string]any{
				"active":                   z.Active,
				"current_room_temperature": z.CurrentRoomTemperature,
				"desired_setpoint":         z.DesiredRoomTemperatureSetpoint,
				"humidity":                 z.Humidity,
			},
			at,
		))
	}

	for _, d := range dhw {
		points = append(points, write.NewPoint(MeasurementHotWater,
			map[string]string{
				"system_id":      sys.ID(),
				"dhw_index":      strconv.Itoa(d.Index),
				"operation_mode": string(d.OperationMode),
			},
			map[string]any{
				"tank_temperature": d.CurrentDHWTankTemperature,
				"set_point":        d.SetPoint,
			},
			at,
		))
	}

	return points
}

// deviceDataPoints builds one point per bucket. Optional series
// attributes become tags only when present.
func deviceDataPoints(data *climate.DeviceData) []*write.Point {
	tags := map[string]string{"operation_mode": data.OperationMode()}
	if dev := data.Device(); dev != nil {
		tags["device_uuid"] = dev.DeviceUUID()
		if sys := dev.System(); sys != nil {
			tags["system_id"] = sys.ID()
		}
	}
	if v, ok := data.EnergyType(); ok {
		tags["energy_type"] = v
	}
	if v, ok := data.ValueType(); ok {
		tags["value_type"] = v
	}
	if v, ok := data.Resolution(); ok {
		tags["resolution"] = string(v)
	}

	buckets := data.Buckets()
	points := make([]*write.Point, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, write.NewPoint(MeasurementDeviceEnergy,
			tags,
			map[string]any{
				"value":            b.Value(),
				"duration_seconds": b.EndDate().Sub(b.StartDate()).Seconds(),
			},
			b.StartDate(),
		))
	}
	return points
}
