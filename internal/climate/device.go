package climate

import (
	"encoding/json"
	"fmt"
	"time"
)

// deviceFields lists the keys a device record may carry in strict mode.
var deviceFields = []string{
	"device_uuid", "name", "product_name", "diagnostic_trouble_codes",
	"properties", "ebus_id", "article_number", "device_serial_number",
	"device_type", "first_data", "last_data", "operational_data", "data",
}

// Device is a physical unit attached to a System that produces telemetry.
//
// The Device does not own its System; many Devices may point at the same
// one. The Device does own its DeviceData records, which point back at it.
// A Device never changes after NewDevice returns, and its accessors hand
// out copies, so it is safe to share.
type Device struct {
	system *System

	deviceUUID             string
	name                   string
	productName            string
	diagnosticTroubleCodes []any
	properties             []any
	ebusID                 string
	articleNumber          string
	deviceSerialNumber     string
	deviceType             string
	firstData              time.Time
	lastData               time.Time
	operationalData        Opaque

	data []*DeviceData
}

// NewDevice builds a Device that belongs to sys. WithStrictFields also
// applies to the device record and to each of its DeviceData records.
//
// An optional "data" list in raw is built in two phases: the Device is
// completed first with no data, each DeviceData is then built pointing at
// it, and the finished list is attached last. A failing record aborts with
// a "data[i]: " prefix.
func NewDevice(sys *System, raw map[string]any, opts ...Option) (*Device, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: device requires a system", ErrMissingStructure)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: device payload is nil", ErrMissingStructure)
	}
	o := buildOptions(opts)
	r := newRecord("", raw)
	if o.strictFields {
		if err := r.onlyKeys(deviceFields); err != nil {
			return nil, err
		}
	}

	d := &Device{system: sys}
	var err error

	if d.deviceUUID, err = r.str("device_uuid"); err != nil {
		return nil, err
	}
	if d.name, err = r.optStr("name", ""); err != nil {
		return nil, err
	}
	if d.productName, err = r.str("product_name"); err != nil {
		return nil, err
	}
	if d.diagnosticTroubleCodes, err = r.optList("diagnostic_trouble_codes"); err != nil {
		return nil, err
	}
	if d.properties, err = r.optList("properties"); err != nil {
		return nil, err
	}
	if d.ebusID, err = r.str("ebus_id"); err != nil {
		return nil, err
	}
	if d.articleNumber, err = r.str("article_number"); err != nil {
		return nil, err
	}
	if d.deviceSerialNumber, err = r.str("device_serial_number"); err != nil {
		return nil, err
	}
	if d.deviceType, err = r.str("device_type"); err != nil {
		return nil, err
	}
	if d.firstData, err = r.timestamp("first_data"); err != nil {
		return nil, err
	}
	if d.lastData, err = r.timestamp("last_data"); err != nil {
		return nil, err
	}
	if d.operationalData, err = r.optObject("operational_data"); err != nil {
		return nil, err
	}

	rawData, err := r.optObjects("data")
	if err != nil {
		return nil, err
	}
	data := make([]*DeviceData, 0, len(rawData))
	for i, rd := range rawData {
		dd, err := NewDeviceData(rd, d, opts...)
		if err != nil {
			return nil, atIndex("data", i, err)
		}
		data = append(data, dd)
	}
	d.data = data

	return d, nil
}

// System returns the system this device is attached to.
func (d *Device) System() *System { return d.system }

// DeviceUUID returns the device's unique id.
func (d *Device) DeviceUUID() string { return d.deviceUUID }

// Name returns the user-given name, which may be blank.
func (d *Device) Name() string { return d.name }

// ProductName returns the manufacturer's product name.
func (d *Device) ProductName() string { return d.productName }

// EbusID returns the eBUS id.
func (d *Device) EbusID() string { return d.ebusID }

// ArticleNumber returns the manufacturer's article number.
func (d *Device) ArticleNumber() string { return d.articleNumber }

// DeviceSerialNumber returns the serial number.
func (d *Device) DeviceSerialNumber() string { return d.deviceSerialNumber }

// DeviceType returns the device category, e.g. HEAT_PUMP or CONTROL.
func (d *Device) DeviceType() string { return d.deviceType }

// FirstData returns when the device first reported data.
func (d *Device) FirstData() time.Time { return d.firstData }

// LastData returns when the device last reported data.
func (d *Device) LastData() time.Time { return d.lastData }

// DiagnosticTroubleCodes returns a copy of the trouble code list.
func (d *Device) DiagnosticTroubleCodes() []any { return deepCopyList(d.diagnosticTroubleCodes) }

// Properties returns a copy of the property list.
func (d *Device) Properties() []any { return deepCopyList(d.properties) }

// OperationalData returns a copy of the operational data object.
func (d *Device) OperationalData() Opaque { return d.operationalData.Clone() }

// Data returns the device's time series in payload order.
func (d *Device) Data() []*DeviceData {
	out := make([]*DeviceData, len(d.data))
	copy(out, d.data)
	return out
}

// NameDisplay returns Name, or the title-cased product name when Name is blank.
func (d *Device) NameDisplay() string {
	if d.name != "" {
		return d.name
	}
	return titleCase(d.productName)
}

// MarshalJSON writes the system as its id and embeds the time series,
// which in turn refer back to this device only by uuid.
func (d *Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SystemID               string        `json:"system_id"`
		NameDisplay            string        `json:"name_display"`
		DeviceUUID             string        `json:"device_uuid"`
		Name                   string        `json:"name"`
		ProductName            string        `json:"product_name"`
		DiagnosticTroubleCodes []any         `json:"diagnostic_trouble_codes"`
		Properties             []any         `json:"properties"`
		EbusID                 string        `json:"ebus_id"`
		ArticleNumber          string        `json:"article_number"`
		DeviceSerialNumber     string        `json:"device_serial_number"`
		DeviceType             string        `json:"device_type"`
		FirstData              time.Time     `json:"first_data"`
		LastData               time.Time     `json:"last_data"`
		OperationalData        Opaque        `json:"operational_data"`
		Data                   []*DeviceData `json:"data"`
	}{
		SystemID:               d.system.ID(),
		NameDisplay:            d.NameDisplay(),
		DeviceUUID:             d.deviceUUID,
		Name:                   d.name,
		ProductName:            d.productName,
		DiagnosticTroubleCodes: d.diagnosticTroubleCodes,
		Properties:             d.properties,
		EbusID:                 d.ebusID,
		ArticleNumber:          d.articleNumber,
		DeviceSerialNumber:     d.deviceSerialNumber,
		DeviceType:             d.deviceType,
		FirstData:              d.firstData,
		LastData:               d.lastData,
		OperationalData:        d.operationalData,
		Data:                   d.data,
	})
}
