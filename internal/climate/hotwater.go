package climate

// DomesticHotWater is the hot water tank subsystem of a system.
type DomesticHotWater struct {
	SystemID                  string                    `json:"system_id"`
	Index                     int                       `json:"index"`
	CurrentDHWTankTemperature float64                   `json:"current_dhw_tank_temperature"`
	CurrentSpecialFunction    DHWCurrentSpecialFunction `json:"current_special_function"`
	MaxSetPoint               float64                   `json:"max_set_point"`
	MinSetPoint               float64                   `json:"min_set_point"`
	OperationMode             DHWOperationMode          `json:"operation_mode"`
	SetPoint                  float64                   `json:"set_point"`
	TimeWindows               Opaque                    `json:"time_windows"`
}

var hotWaterFields = []string{
	"index", "current_dhw_tank_temperature", "current_special_function",
	"max_set_point", "min_set_point", "operation_mode", "set_point",
	"time_windows",
}

func (d DomesticHotWater) clone() DomesticHotWater {
	d.TimeWindows = d.TimeWindows.Clone()
	return d
}

func newDomesticHotWater(systemID string, raw map[string]any, o options) (DomesticHotWater, error) {
	r := newRecord("", raw)
	if err := r.rejectKey("system_id"); err != nil {
		return DomesticHotWater{}, err
	}
	if o.strictFields {
		if err := r.onlyKeys(hotWaterFields); err != nil {
			return DomesticHotWater{}, err
		}
	}

	d := DomesticHotWater{SystemID: systemID}
	var err error

	if d.Index, err = r.integer("index"); err != nil {
		return DomesticHotWater{}, err
	}
	if d.CurrentDHWTankTemperature, err = r.float("current_dhw_tank_temperature"); err != nil {
		return DomesticHotWater{}, err
	}
	if d.CurrentSpecialFunction, err = enumField(r, "current_special_function", ParseDHWCurrentSpecialFunction); err != nil {
		return DomesticHotWater{}, err
	}
	if d.MaxSetPoint, err = r.float("max_set_point"); err != nil {
		return DomesticHotWater{}, err
	}
	if d.MinSetPoint, err = r.float("min_set_point"); err != nil {
		return DomesticHotWater{}, err
	}
	if d.OperationMode, err = enumField(r, "operation_mode", ParseDHWOperationMode); err != nil {
		return DomesticHotWater{}, err
	}
	if d.SetPoint, err = r.float("set_point"); err != nil {
		return DomesticHotWater{}, err
	}
	if d.TimeWindows, err = r.object("time_windows"); err != nil {
		return DomesticHotWater{}, err
	}

	return d, nil
}

// Display returns the human-readable form of each enum field, keyed by
// its JSON name.
func (d DomesticHotWater) Display() map[string]string {
	return map[string]string{
		"current_special_function": d.CurrentSpecialFunction.DisplayValue(),
		"operation_mode":           d.OperationMode.DisplayValue(),
	}
}
