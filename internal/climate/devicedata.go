package climate

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeviceDataBucket is one aggregated telemetry sample over [start, end].
type DeviceDataBucket struct {
	start time.Time
	end   time.Time
	value float64
}

// NewDeviceDataBucket returns ErrInvalidRange when start is after end.
// A zero-length bucket (start == end) is allowed.
func NewDeviceDataBucket(start, end time.Time, value float64) (DeviceDataBucket, error) {
	if start.After(end) {
		return DeviceDataBucket{}, fmt.Errorf("%w: bucket starts %s after it ends %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return DeviceDataBucket{start: start, end: end, value: value}, nil
}

func newBucket(raw map[string]any) (DeviceDataBucket, error) {
	r := newRecord("", raw)
	start, err := r.timestamp("start_date")
	if err != nil {
		return DeviceDataBucket{}, err
	}
	end, err := r.timestamp("end_date")
	if err != nil {
		return DeviceDataBucket{}, err
	}
	value, err := r.float("value")
	if err != nil {
		return DeviceDataBucket{}, err
	}
	return NewDeviceDataBucket(start, end, value)
}

// StartDate returns the inclusive start of the bucket.
func (b DeviceDataBucket) StartDate() time.Time { return b.start }

// EndDate returns the end of the bucket.
func (b DeviceDataBucket) EndDate() time.Time { return b.end }

// Value returns the aggregated sample.
func (b DeviceDataBucket) Value() float64 { return b.value }

// MarshalJSON uses the wire field names.
func (b DeviceDataBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		Value     float64   `json:"value"`
	}{b.start, b.end, b.value})
}

// deviceDataFields lists the keys a DeviceData record may carry in strict
// mode. "device" is allowed but ignored.
var deviceDataFields = []string{
	"device", "start_date", "end_date", "resolution", "operation_mode",
	"energy_type", "value_type", "data",
}

// DeviceData is a labelled time series produced by one device.
//
// The back-reference to the device is optional: telemetry fetched on its
// own, before or without a Device, has a nil Device(). Optional labels are
// read with comma-ok accessors, so holders cannot change them.
type DeviceData struct {
	device *Device

	startDate     *time.Time
	endDate       *time.Time
	resolution    *DeviceDataBucketResolution
	operationMode string
	energyType    *string
	valueType     *string

	buckets []DeviceDataBucket
}

// NewDeviceData builds a time series from its raw mapping. owner may be nil.
// Any "device" key in raw is ignored; the owner is always the argument.
func NewDeviceData(raw map[string]any, owner *Device, opts ...Option) (*DeviceData, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: device data payload is nil", ErrMissingStructure)
	}
	r := newRecord("", raw)
	if buildOptions(opts).strictFields {
		if err := r.onlyKeys(deviceDataFields); err != nil {
			return nil, err
		}
	}

	dd := &DeviceData{device: owner}
	var err error

	if dd.operationMode, err = r.str("operation_mode"); err != nil {
		return nil, err
	}
	if dd.startDate, err = r.nullableTimestamp("start_date"); err != nil {
		return nil, err
	}
	if dd.endDate, err = r.nullableTimestamp("end_date"); err != nil {
		return nil, err
	}
	if dd.startDate != nil && dd.endDate != nil && dd.startDate.After(*dd.endDate) {
		return nil, &FieldError{Path: "end_date", Expected: "not before start_date", Err: ErrInvalidRange}
	}
	if _, ok := r.lookup("resolution"); ok {
		res, err := enumField(r, "resolution", ParseDeviceDataBucketResolution)
		if err != nil {
			return nil, err
		}
		dd.resolution = &res
	}
	if dd.energyType, err = r.nullableStr("energy_type"); err != nil {
		return nil, err
	}
	if dd.valueType, err = r.nullableStr("value_type"); err != nil {
		return nil, err
	}

	rawBuckets, err := r.optObjects("data")
	if err != nil {
		return nil, err
	}
	dd.buckets = make([]DeviceDataBucket, 0, len(rawBuckets))
	for i, rb := range rawBuckets {
		b, err := newBucket(rb)
		if err != nil {
			return nil, atIndex("data", i, err)
		}
		dd.buckets = append(dd.buckets, b)
	}

	return dd, nil
}

// Device returns the owning device, or nil.
func (dd *DeviceData) Device() *Device { return dd.device }

// OperationMode returns the operation mode the series was recorded in.
func (dd *DeviceData) OperationMode() string { return dd.operationMode }

// StartDate returns the start of the series, if the payload gave one.
func (dd *DeviceData) StartDate() (time.Time, bool) { return deref(dd.startDate) }

// EndDate returns the end of the series, if the payload gave one.
func (dd *DeviceData) EndDate() (time.Time, bool) { return deref(dd.endDate) }

// Resolution returns the bucket resolution, if the payload gave one.
func (dd *DeviceData) Resolution() (DeviceDataBucketResolution, bool) { return deref(dd.resolution) }

// EnergyType returns the energy type label, if present.
func (dd *DeviceData) EnergyType() (string, bool) { return deref(dd.energyType) }

// ValueType returns the value type label, if present.
func (dd *DeviceData) ValueType() (string, bool) { return deref(dd.valueType) }

// Buckets returns the samples in payload order.
func (dd *DeviceData) Buckets() []DeviceDataBucket {
	out := make([]DeviceDataBucket, len(dd.buckets))
	copy(out, dd.buckets)
	return out
}

// Total returns the sum of all bucket values.
func (dd *DeviceData) Total() float64 {
	var sum float64
	for _, b := range dd.buckets {
		sum += b.value
	}
	return sum
}

// MarshalJSON writes the owner as its uuid so the Device <-> DeviceData
// cycle never recurses.
func (dd *DeviceData) MarshalJSON() ([]byte, error) {
	var deviceUUID *string
	if dd.device != nil {
		id := dd.device.deviceUUID
		deviceUUID = &id
	}
	return json.Marshal(struct {
		DeviceUUID    *string                     `json:"device_uuid,omitempty"`
		StartDate     *time.Time                  `json:"start_date,omitempty"`
		EndDate       *time.Time                  `json:"end_date,omitempty"`
		Resolution    *DeviceDataBucketResolution `json:"resolution,omitempty"`
		OperationMode string                      `json:"operation_mode"`
		EnergyType    *string                     `json:"energy_type,omitempty"`
		ValueType     *string                     `json:"value_type,omitempty"`
		Data          []DeviceDataBucket          `json:"data"`
	}{deviceUUID, dd.startDate, dd.endDate, dd.resolution, dd.operationMode, dd.energyType, dd.valueType, dd.buckets})
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
