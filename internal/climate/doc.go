// Package climate turns the loosely-typed JSON of a heating system into a
// validated, strongly-typed domain graph.
//
// The raw payload comes from the cloud API of a heat pump / boiler
// controller. It nests the interesting parts several levels deep and omits
// foreign keys that the domain model needs. This package does the
// normalisation and nothing else: no I/O, no retries, no defaults beyond
// the ones listed on each constructor.
//
// # Graph
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ System (aggregate root, built by NewSystem)                  │
//	│                                                              │
//	│   system_control_state.control_state                         │
//	│     ├── zones[]              → []Zone              ┐         │
//	│     ├── circuits[]           → []Circuit           ├ system_id│
//	│     ├── domestic_hot_water[] → []DomesticHotWater  ┘ injected │
//	│     └── general              → OutdoorTemperature/WaterPressure/Mode
//	└──────────────────────────────────────────────────────────────┘
//	        ▲ shared, not owned
//	┌───────┴──────┐ owns  ┌──────────────┐ owns ┌──────────────────┐
//	│    Device    │──────▶│  DeviceData  │─────▶│ DeviceDataBucket │
//	│  (NewDevice) │◀──────│ (back-ref,   │      │ start <= end     │
//	└──────────────┘ weak  │  may be nil) │      └──────────────────┘
//	                       └──────────────┘
//
// The Device ↔ DeviceData cycle is built in two phases: the Device is
// completed with an empty data list, each DeviceData is created pointing at
// it, and the list is attached last. JSON encoding writes the back-reference
// as the device uuid.
//
// # Errors
//
// Construction fails on the first problem and returns an error wrapping
// one sentinel (ErrMissingStructure, ErrMissingField, ErrTypeMismatch,
// ErrInvalidEnumValue, ErrInvalidRange, ...). Field problems carry a
// *FieldError with the path and expected type; leaf failures are prefixed
// with their position, e.g. "zones[1]: heating_state: ...".
//
// # Usage
//
//	var raw map[string]any
//	if err := json.Unmarshal(payload, &raw); err != nil {
//	    return err
//	}
//	sys, err := climate.NewSystem(raw)
//	if err != nil {
//	    log.Warn("rejected system payload", "kind", climate.Kind(err), "error", err)
//	    return err
//	}
//	temp, err := sys.OutdoorTemperature()
//
// # Thread Safety
//
// Built values are never mutated, and accessors return copies. A *System
// and its Devices can be read from any number of goroutines.
package climate
