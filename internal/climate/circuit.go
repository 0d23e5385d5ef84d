package climate

// Circuit is a heating distribution loop serving one or more zones.
// CircuitState and MixerCircuitTypeExternal are free-form strings from the
// controller and are not restricted to a closed set.
type Circuit struct {
	SystemID                      string  `json:"system_id"`
	Index                         int     `json:"index"`
	CircuitState                  string  `json:"circuit_state"`
	CurrentCircuitFlowTemperature float64 `json:"current_circuit_flow_temperature"`
	HeatingCurve                  float64 `json:"heating_curve"`
	IsCoolingAllowed              bool    `json:"is_cooling_allowed"`
	MinFlowTemperatureSetpoint    float64 `json:"min_flow_temperature_setpoint"`
	MixerCircuitTypeExternal      string  `json:"mixer_circuit_type_external"`
	SetBackModeEnabled            bool    `json:"set_back_mode_enabled"`
	Zones                         []any   `json:"zones"`
}

var circuitFields = []string{
	"index", "circuit_state", "current_circuit_flow_temperature",
	"heating_curve", "is_cooling_allowed", "min_flow_temperature_setpoint",
	"mixer_circuit_type_external", "set_back_mode_enabled", "zones",
}

func (c Circuit) clone() Circuit {
	c.Zones = deepCopyList(c.Zones)
	return c
}

func newCircuit(systemID string, raw map[string]any, o options) (Circuit, error) {
	r := newRecord("", raw)
	if err := r.rejectKey("system_id"); err != nil {
		return Circuit{}, err
	}
	if o.strictFields {
		if err := r.onlyKeys(circuitFields); err != nil {
			return Circuit{}, err
		}
	}

	c := Circuit{SystemID: systemID}
	var err error

	if c.Index, err = r.integer("index"); err != nil {
		return Circuit{}, err
	}
	if c.CircuitState, err = r.str("circuit_state"); err != nil {
		return Circuit{}, err
	}
	if c.CurrentCircuitFlowTemperature, err = r.float("current_circuit_flow_temperature"); err != nil {
		return Circuit{}, err
	}
	if c.HeatingCurve, err = r.float("heating_curve"); err != nil {
		return Circuit{}, err
	}
	if c.IsCoolingAllowed, err = r.boolean("is_cooling_allowed"); err != nil {
		return Circuit{}, err
	}
	if c.MinFlowTemperatureSetpoint, err = r.float("min_flow_temperature_setpoint"); err != nil {
		return Circuit{}, err
	}
	if c.MixerCircuitTypeExternal, err = r.str("mixer_circuit_type_external"); err != nil {
		return Circuit{}, err
	}
	if c.SetBackModeEnabled, err = r.boolean("set_back_mode_enabled"); err != nil {
		return Circuit{}, err
	}
	// Circuits without zone assignments omit the key entirely.
	if c.Zones, err = r.optList("zones"); err != nil {
		return Circuit{}, err
	}

	return c, nil
}
