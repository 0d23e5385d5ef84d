package climate

import (
	"encoding/json"
	"fmt"
)

// Paths inside the raw system payload.
const (
	keyControlStateRoot = "system_control_state"
	keyControlState     = "control_state"
	keyZones            = "zones"
	keyCircuits         = "circuits"
	keyDomesticHotWater = "domestic_hot_water"
	keyGeneral          = "general"

	generalPath = keyControlStateRoot + "." + keyControlState + "." + keyGeneral
)

// System is one heating installation and its current state snapshot.
//
// A System is built once from a raw payload by NewSystem and never
// changes afterwards. Accessors return copies, so it is safe to share a
// *System between goroutines and between the Devices that reference it.
type System struct {
	id           string
	status       map[string]bool
	devices      []Opaque
	hasOwnership bool

	currentSystem       Opaque
	systemConfiguration Opaque
	systemControlState  Opaque
	gateway             Opaque

	general          Opaque
	zones            []Zone
	circuits         []Circuit
	domesticHotWater []DomesticHotWater
}

// NewSystem validates a raw system payload and builds the typed graph.
//
// The zones, circuits and hot water units are extracted from
// system_control_state.control_state, each record gets the system id
// injected as system_id, and the results keep the order of the raw arrays.
// The first failure aborts construction; no partial System is returned.
//
// Errors wrap ErrMissingStructure when control_state or one of its
// zones/circuits/domestic_hot_water/general keys is absent, and otherwise
// the sentinel of the failing field, prefixed with "zones[i]: " and so on
// for leaf records.
func NewSystem(raw map[string]any, opts ...Option) (*System, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: system payload is nil", ErrMissingStructure)
	}
	o := buildOptions(opts)
	r := newRecord("", raw)
	s := &System{}
	var err error

	if s.id, err = r.str("id"); err != nil {
		return nil, err
	}
	if s.status, err = r.boolMap("status"); err != nil {
		return nil, err
	}
	devices, err := r.objects("devices")
	if err != nil {
		return nil, err
	}
	s.devices = make([]Opaque, len(devices))
	for i, d := range devices {
		s.devices[i] = Opaque(deepCopyMap(d))
	}
	if s.hasOwnership, err = r.boolean("has_ownership"); err != nil {
		return nil, err
	}
	if s.currentSystem, err = r.optObject("current_system"); err != nil {
		return nil, err
	}
	if s.systemConfiguration, err = r.optObject("system_configuration"); err != nil {
		return nil, err
	}
	if s.gateway, err = r.optObject("gateway"); err != nil {
		return nil, err
	}

	control, err := controlState(r)
	if err != nil {
		return nil, err
	}
	// Copied only after the structure checks so the error above is a
	// missing-structure error rather than a missing-field one.
	if s.systemControlState, err = r.object(keyControlStateRoot); err != nil {
		return nil, err
	}
	if s.general, err = control.object(keyGeneral); err != nil {
		return nil, err
	}

	if err := s.buildLeaves(control, o); err != nil {
		return nil, err
	}

	if o.uniqueIndices {
		if err := s.ValidateIndices(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// controlState locates system_control_state.control_state and checks that
// every sub-key the system consumes is present.
func controlState(r record) (record, error) {
	root, err := r.child(keyControlStateRoot)
	if err != nil {
		return record{}, err
	}
	control, err := root.child(keyControlState)
	if err != nil {
		return record{}, err
	}
	for _, key := range []string{keyZones, keyCircuits, keyDomesticHotWater} {
		if err := control.requireStructure(key, typeList); err != nil {
			return record{}, err
		}
	}
	if err := control.requireStructure(keyGeneral, typeObject); err != nil {
		return record{}, err
	}
	return control, nil
}

func (s *System) buildLeaves(control record, o options) error {
	rawZones, err := control.objects(keyZones)
	if err != nil {
		return err
	}
	rawCircuits, err := control.objects(keyCircuits)
	if err != nil {
		return err
	}
	rawDHW, err := control.objects(keyDomesticHotWater)
	if err != nil {
		return err
	}

	s.zones = make([]Zone, 0, len(rawZones))
	for i, raw := range rawZones {
		z, err := newZone(s.id, raw, o)
		if err != nil {
			return atIndex(keyZones, i, err)
		}
		s.zones = append(s.zones, z)
	}

	s.circuits = make([]Circuit, 0, len(rawCircuits))
	for i, raw := range rawCircuits {
		c, err := newCircuit(s.id, raw, o)
		if err != nil {
			return atIndex(keyCircuits, i, err)
		}
		s.circuits = append(s.circuits, c)
	}

	s.domesticHotWater = make([]DomesticHotWater, 0, len(rawDHW))
	for i, raw := range rawDHW {
		d, err := newDomesticHotWater(s.id, raw, o)
		if err != nil {
			return atIndex(keyDomesticHotWater, i, err)
		}
		s.domesticHotWater = append(s.domesticHotWater, d)
	}

	return nil
}

// ID returns the system identifier.
func (s *System) ID() string { return s.id }

// HasOwnership reports whether the account owns the installation.
func (s *System) HasOwnership() bool { return s.hasOwnership }

// Status returns a copy of the status flags.
func (s *System) Status() map[string]bool {
	out := make(map[string]bool, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

// Devices returns copies of the raw device summaries carried by the payload.
func (s *System) Devices() []Opaque { return cloneObjects(s.devices) }

// CurrentSystem returns a copy of the current_system object.
func (s *System) CurrentSystem() Opaque { return s.currentSystem.Clone() }

// SystemConfiguration returns a copy of the system_configuration object.
func (s *System) SystemConfiguration() Opaque { return s.systemConfiguration.Clone() }

// SystemControlState returns a copy of the system_control_state object.
func (s *System) SystemControlState() Opaque { return s.systemControlState.Clone() }

// Gateway returns a copy of the gateway object.
func (s *System) Gateway() Opaque { return s.gateway.Clone() }

// Zones returns the zones in payload order.
func (s *System) Zones() []Zone {
	out := make([]Zone, len(s.zones))
	for i, z := range s.zones {
		out[i] = z.clone()
	}
	return out
}

// Circuits returns the circuits in payload order.
func (s *System) Circuits() []Circuit {
	out := make([]Circuit, len(s.circuits))
	for i, c := range s.circuits {
		out[i] = c.clone()
	}
	return out
}

// DomesticHotWater returns the hot water units in payload order.
func (s *System) DomesticHotWater() []DomesticHotWater {
	out := make([]DomesticHotWater, len(s.domesticHotWater))
	for i, d := range s.domesticHotWater {
		out[i] = d.clone()
	}
	return out
}

// Zone returns the first zone with the given index.
func (s *System) Zone(index int) (Zone, bool) {
	for _, z := range s.zones {
		if z.Index == index {
			return z.clone(), true
		}
	}
	return Zone{}, false
}

// Circuit returns the first circuit with the given index.
func (s *System) Circuit(index int) (Circuit, bool) {
	for _, c := range s.circuits {
		if c.Index == index {
			return c.clone(), true
		}
	}
	return Circuit{}, false
}

// DomesticHotWaterUnit returns the first hot water unit with the given index.
func (s *System) DomesticHotWaterUnit(index int) (DomesticHotWater, bool) {
	for _, d := range s.domesticHotWater {
		if d.Index == index {
			return d.clone(), true
		}
	}
	return DomesticHotWater{}, false
}

// OutdoorTemperature reads control_state.general.outdoor_temperature.
// A missing key is an error, not zero.
func (s *System) OutdoorTemperature() (float64, error) {
	return newRecord(generalPath, s.general).float("outdoor_temperature")
}

// WaterPressure reads control_state.general.system_water_pressure.
func (s *System) WaterPressure() (float64, error) {
	return newRecord(generalPath, s.general).float("system_water_pressure")
}

// Mode reads control_state.general.system_mode.
func (s *System) Mode() (string, error) {
	return newRecord(generalPath, s.general).str("system_mode")
}

// ValidateIndices reports ErrDuplicateIndex if two zones, two circuits or
// two hot water units share an index. Gaps in the numbering are allowed.
func (s *System) ValidateIndices() error {
	zoneIdx := make([]int, len(s.zones))
	for i, z := range s.zones {
		zoneIdx[i] = z.Index
	}
	if err := uniqueIndices(keyZones, zoneIdx); err != nil {
		return err
	}

	circuitIdx := make([]int, len(s.circuits))
	for i, c := range s.circuits {
		circuitIdx[i] = c.Index
	}
	if err := uniqueIndices(keyCircuits, circuitIdx); err != nil {
		return err
	}

	dhwIdx := make([]int, len(s.domesticHotWater))
	for i, d := range s.domesticHotWater {
		dhwIdx[i] = d.Index
	}
	return uniqueIndices(keyDomesticHotWater, dhwIdx)
}

func uniqueIndices(collection string, indices []int) error {
	seen := make(map[int]int, len(indices))
	for i, idx := range indices {
		if first, ok := seen[idx]; ok {
			return atIndex(collection, i, &FieldError{
				Path:     "index",
				Expected: fmt.Sprintf("unique, %d already used by %s[%d]", idx, collection, first),
				Err:      ErrDuplicateIndex,
			})
		}
		seen[idx] = i
	}
	return nil
}

// systemJSON is the serialised form of a normalised System.
type systemJSON struct {
	ID                  string             `json:"id"`
	Status              map[string]bool    `json:"status"`
	Devices             []Opaque           `json:"devices"`
	HasOwnership        bool               `json:"has_ownership"`
	CurrentSystem       Opaque             `json:"current_system"`
	SystemConfiguration Opaque             `json:"system_configuration"`
	SystemControlState  Opaque             `json:"system_control_state"`
	Gateway             Opaque             `json:"gateway"`
	Zones               []Zone             `json:"zones"`
	Circuits            []Circuit          `json:"circuits"`
	DomesticHotWater    []DomesticHotWater `json:"domestic_hot_water"`
	OutdoorTemperature  *float64           `json:"outdoor_temperature,omitempty"`
	WaterPressure       *float64           `json:"water_pressure,omitempty"`
	Mode                *string            `json:"mode,omitempty"`
}

// MarshalJSON renders the normalised graph. Derived scalars that cannot
// be read are omitted rather than failing the whole encoding.
func (s *System) MarshalJSON() ([]byte, error) {
	out := systemJSON{
		ID:                  s.id,
		Status:              s.status,
		Devices:             s.devices,
		HasOwnership:        s.hasOwnership,
		CurrentSystem:       s.currentSystem,
		SystemConfiguration: s.systemConfiguration,
		SystemControlState:  s.systemControlState,
		Gateway:             s.gateway,
		Zones:               s.zones,
		Circuits:            s.circuits,
		DomesticHotWater:    s.domesticHotWater,
	}
	if v, err := s.OutdoorTemperature(); err == nil {
		out.OutdoorTemperature = &v
	}
	if v, err := s.WaterPressure(); err == nil {
		out.WaterPressure = &v
	}
	if v, err := s.Mode(); err == nil {
		out.Mode = &v
	}
	return json.Marshal(out)
}
