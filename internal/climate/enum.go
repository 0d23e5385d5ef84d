package climate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ZoneHeatingOperatingMode is how a zone decides its setpoint.
type ZoneHeatingOperatingMode string

// ZoneHeatingOperatingMode constants.
const (
	ZoneModeManual         ZoneHeatingOperatingMode = "MANUAL"
	ZoneModeTimeControlled ZoneHeatingOperatingMode = "TIME_CONTROLLED"
	ZoneModeOff            ZoneHeatingOperatingMode = "OFF"
)

// AllZoneHeatingOperatingModes returns all valid zone operating modes.
func AllZoneHeatingOperatingModes() []ZoneHeatingOperatingMode {
	return []ZoneHeatingOperatingMode{ZoneModeManual, ZoneModeTimeControlled, ZoneModeOff}
}

// ZoneCurrentSpecialFunction is a temporary override active on a zone.
type ZoneCurrentSpecialFunction string

// ZoneCurrentSpecialFunction constants.
const (
	ZoneFunctionNone      ZoneCurrentSpecialFunction = "NONE"
	ZoneFunctionQuickVeto ZoneCurrentSpecialFunction = "QUICK_VETO"
	ZoneFunctionHoliday   ZoneCurrentSpecialFunction = "HOLIDAY"
)

// AllZoneCurrentSpecialFunctions returns all valid zone special functions.
func AllZoneCurrentSpecialFunctions() []ZoneCurrentSpecialFunction {
	return []ZoneCurrentSpecialFunction{ZoneFunctionNone, ZoneFunctionQuickVeto, ZoneFunctionHoliday}
}

// ZoneHeatingState is what the zone is doing right now.
type ZoneHeatingState string

// ZoneHeatingState constants.
const (
	ZoneStateIdle      ZoneHeatingState = "IDLE"
	ZoneStateHeatingUp ZoneHeatingState = "HEATING_UP"
)

// AllZoneHeatingStates returns all valid zone heating states.
func AllZoneHeatingStates() []ZoneHeatingState {
	return []ZoneHeatingState{ZoneStateIdle, ZoneStateHeatingUp}
}

// DHWCurrentSpecialFunction is a temporary override on a hot water unit.
type DHWCurrentSpecialFunction string

// DHWCurrentSpecialFunction constants.
const (
	DHWFunctionCylinderBoost DHWCurrentSpecialFunction = "CYLINDER_BOOST"
	DHWFunctionRegular       DHWCurrentSpecialFunction = "REGULAR"
)

// AllDHWCurrentSpecialFunctions returns all valid DHW special functions.
func AllDHWCurrentSpecialFunctions() []DHWCurrentSpecialFunction {
	return []DHWCurrentSpecialFunction{DHWFunctionCylinderBoost, DHWFunctionRegular}
}

// DHWOperationMode is how a hot water unit decides its setpoint.
type DHWOperationMode string

// DHWOperationMode constants.
const (
	DHWModeManual         DHWOperationMode = "MANUAL"
	DHWModeTimeControlled DHWOperationMode = "TIME_CONTROLLED"
	DHWModeOff            DHWOperationMode = "OFF"
)

// AllDHWOperationModes returns all valid DHW operation modes.
func AllDHWOperationModes() []DHWOperationMode {
	return []DHWOperationMode{DHWModeManual, DHWModeTimeControlled, DHWModeOff}
}

// DeviceDataBucketResolution is the aggregation period of a time series.
type DeviceDataBucketResolution string

// DeviceDataBucketResolution constants.
const (
	ResolutionHour  DeviceDataBucketResolution = "HOUR"
	ResolutionDay   DeviceDataBucketResolution = "DAY"
	ResolutionMonth DeviceDataBucketResolution = "MONTH"
)

// AllDeviceDataBucketResolutions returns all valid resolutions.
func AllDeviceDataBucketResolutions() []DeviceDataBucketResolution {
	return []DeviceDataBucketResolution{ResolutionHour, ResolutionDay, ResolutionMonth}
}

// String returns the bare wire token.
func (v ZoneHeatingOperatingMode) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v ZoneHeatingOperatingMode) DisplayValue() string { return DisplayValue(string(v)) }

// String returns the bare wire token.
func (v ZoneCurrentSpecialFunction) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v ZoneCurrentSpecialFunction) DisplayValue() string { return DisplayValue(string(v)) }

// String returns the bare wire token.
func (v ZoneHeatingState) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v ZoneHeatingState) DisplayValue() string { return DisplayValue(string(v)) }

// String returns the bare wire token.
func (v DHWCurrentSpecialFunction) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v DHWCurrentSpecialFunction) DisplayValue() string { return DisplayValue(string(v)) }

// String returns the bare wire token.
func (v DHWOperationMode) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v DHWOperationMode) DisplayValue() string { return DisplayValue(string(v)) }

// String returns the bare wire token.
func (v DeviceDataBucketResolution) String() string { return string(v) }

// DisplayValue returns the token in human-readable form.
func (v DeviceDataBucketResolution) DisplayValue() string { return DisplayValue(string(v)) }

// ParseZoneHeatingOperatingMode validates a wire token.
func ParseZoneHeatingOperatingMode(token string) (ZoneHeatingOperatingMode, error) {
	return parseEnum("zone heating operating mode", token, AllZoneHeatingOperatingModes())
}

// ParseZoneCurrentSpecialFunction validates a wire token.
func ParseZoneCurrentSpecialFunction(token string) (ZoneCurrentSpecialFunction, error) {
	return parseEnum("zone special function", token, AllZoneCurrentSpecialFunctions())
}

// ParseZoneHeatingState validates a wire token.
func ParseZoneHeatingState(token string) (ZoneHeatingState, error) {
	return parseEnum("zone heating state", token, AllZoneHeatingStates())
}

// ParseDHWCurrentSpecialFunction validates a wire token.
func ParseDHWCurrentSpecialFunction(token string) (DHWCurrentSpecialFunction, error) {
	return parseEnum("dhw special function", token, AllDHWCurrentSpecialFunctions())
}

// ParseDHWOperationMode validates a wire token.
func ParseDHWOperationMode(token string) (DHWOperationMode, error) {
	return parseEnum("dhw operation mode", token, AllDHWOperationModes())
}

// ParseDeviceDataBucketResolution validates a wire token.
func ParseDeviceDataBucketResolution(token string) (DeviceDataBucketResolution, error) {
	return parseEnum("resolution", token, AllDeviceDataBucketResolutions())
}

// parseEnum is the single membership check behind every Parse function.
// Matching is exact: "hour" is not "HOUR".
func parseEnum[T ~string](kind, token string, allowed []T) (T, error) {
	for _, v := range allowed {
		if string(v) == token {
			return v, nil
		}
	}
	names := make([]string, len(allowed))
	for i, v := range allowed {
		names[i] = string(v)
	}
	return "", fmt.Errorf("%w: %s %q not in [%s]", ErrInvalidEnumValue, kind, token, strings.Join(names, ", "))
}

// DisplayValue turns a wire token into display text: underscores become
// spaces and each word is title-cased ("TIME_CONTROLLED" -> "Time Controlled").
func DisplayValue(token string) string {
	return titleCase(strings.ReplaceAll(token, "_", " "))
}

// titleCase upper-cases the first letter of each run of letters and
// lower-cases the rest. Digits and punctuation end a run, so
// "vaillant2go" becomes "Vaillant2Go".
// A new caser is built per call; cases.Caser is not safe for concurrent use.
func titleCase(s string) string {
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}

// enumField reads a string field and validates it with parse.
func enumField[T ~string](r record, key string, parse func(string) (T, error)) (T, error) {
	token, err := r.str(key)
	if err != nil {
		return "", err
	}
	v, err := parse(token)
	if err != nil {
		return "", &FieldError{Path: r.path(key), Err: err}
	}
	return v, nil
}
