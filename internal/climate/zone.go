package climate

// Zone is a climate-controlled area of a system with its own setpoint
// and schedule.
type Zone struct {
	SystemID                       string                     `json:"system_id"`
	Name                           string                     `json:"name"`
	Index                          int                        `json:"index"`
	Active                         bool                       `json:"active"`
	CurrentRoomTemperature         float64                    `json:"current_room_temperature"`
	CurrentSpecialFunction         ZoneCurrentSpecialFunction `json:"current_special_function"`
	DesiredRoomTemperatureSetpoint float64                    `json:"desired_room_temperature_setpoint"`
	ManualModeSetpoint             float64                    `json:"manual_mode_setpoint"`
	HeatingOperationMode           ZoneHeatingOperatingMode   `json:"heating_operation_mode"`
	HeatingState                   ZoneHeatingState           `json:"heating_state"`
	Humidity                       float64                    `json:"humidity"`
	SetBackTemperature             float64                    `json:"set_back_temperature"`
	TimeWindows                    Opaque                     `json:"time_windows"`
}

var zoneFields = []string{
	"name", "index", "active", "current_room_temperature",
	"current_special_function", "desired_room_temperature_setpoint",
	"manual_mode_setpoint", "heating_operation_mode", "heating_state",
	"humidity", "set_back_temperature", "time_windows",
}

// clone returns a copy that shares no maps with z.
func (z Zone) clone() Zone {
	z.TimeWindows = z.TimeWindows.Clone()
	return z
}

func newZone(systemID string, raw map[string]any, o options) (Zone, error) {
	r := newRecord("", raw)
	if err := r.rejectKey("system_id"); err != nil {
		return Zone{}, err
	}
	if o.strictFields {
		if err := r.onlyKeys(zoneFields); err != nil {
			return Zone{}, err
		}
	}

	z := Zone{SystemID: systemID}
	var err error

	if z.Name, err = r.str("name"); err != nil {
		return Zone{}, err
	}
	if z.Index, err = r.integer("index"); err != nil {
		return Zone{}, err
	}
	if z.Active, err = r.boolean("active"); err != nil {
		return Zone{}, err
	}
	if z.CurrentRoomTemperature, err = r.float("current_room_temperature"); err != nil {
		return Zone{}, err
	}
	if z.CurrentSpecialFunction, err = enumField(r, "current_special_function", ParseZoneCurrentSpecialFunction); err != nil {
		return Zone{}, err
	}
	if z.DesiredRoomTemperatureSetpoint, err = r.float("desired_room_temperature_setpoint"); err != nil {
		return Zone{}, err
	}
	if z.ManualModeSetpoint, err = r.float("manual_mode_setpoint"); err != nil {
		return Zone{}, err
	}
	if z.HeatingOperationMode, err = enumField(r, "heating_operation_mode", ParseZoneHeatingOperatingMode); err != nil {
		return Zone{}, err
	}
	if z.HeatingState, err = enumField(r, "heating_state", ParseZoneHeatingState); err != nil {
		return Zone{}, err
	}
	if z.Humidity, err = r.float("humidity"); err != nil {
		return Zone{}, err
	}
	if z.SetBackTemperature, err = r.float("set_back_temperature"); err != nil {
		return Zone{}, err
	}
	if z.TimeWindows, err = r.object("time_windows"); err != nil {
		return Zone{}, err
	}

	return z, nil
}

// Display returns the human-readable form of each enum field, keyed by
// its JSON name.
func (z Zone) Display() map[string]string {
	return map[string]string{
		"current_special_function": z.CurrentSpecialFunction.DisplayValue(),
		"heating_operation_mode":   z.HeatingOperationMode.DisplayValue(),
		"heating_state":            z.HeatingState.DisplayValue(),
	}
}

// ZoneView is a zone together with the display form of its enum fields.
type ZoneView struct {
	Zone
	Display map[string]string `json:"display"`
}

// View pairs z with its display strings.
func (z Zone) View() ZoneView {
	return ZoneView{Zone: z, Display: z.Display()}
}
