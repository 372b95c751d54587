package state

import (
	"errors"
	"fmt"
	"reflect"
)

// Mode is the operating mode of a conditioning unit
type Mode string

const (
	ModeCool Mode = "COOL"
	ModeHeat Mode = "HEAT"
	ModeAuto Mode = "AUTO"
	ModeFan  Mode = "FAN"
	ModeDry  Mode = "DRY"
)

type Swing string

const (
	SwingEnabled  Swing = "SWING_ENABLED"
	SwingDisabled Swing = "SWING_DISABLED"
)

type FilterChange string

const (
	FilterOK           FilterChange = "FILTER_OK"
	FilterChangeNeeded FilterChange = "CHANGE_FILTER"
)

// ReactTarget is the state Climate React applies when a threshold is crossed.
// Temperatures are Celsius.
type ReactTarget struct {
	On                bool
	Mode              Mode
	TargetTemperature *float64
	FanSpeed          *int
	HorizontalSwing   Swing
	VerticalSwing     Swing
	Light             bool
}

// SmartMode is the Climate React policy of a device
type SmartMode struct {
	Enabled                  bool
	Type                     string
	LowTemperatureThreshold  *float64
	HighTemperatureThreshold *float64
	LowTemperatureState      *ReactTarget
	HighTemperatureState     *ReactTarget
}

func (sm *SmartMode) clone() *SmartMode {
	if sm == nil {
		return nil
	}
	n := *sm
	n.LowTemperatureThreshold = cloneFloat(sm.LowTemperatureThreshold)
	n.HighTemperatureThreshold = cloneFloat(sm.HighTemperatureThreshold)
	n.LowTemperatureState = sm.LowTemperatureState.clone()
	n.HighTemperatureState = sm.HighTemperatureState.clone()
	return &n
}

func (rt *ReactTarget) clone() *ReactTarget {
	if rt == nil {
		return nil
	}
	n := *rt
	n.TargetTemperature = cloneFloat(rt.TargetTemperature)
	n.FanSpeed = cloneInt(rt.FanSpeed)
	return &n
}

// State is the snapshot of one device or sub-entity. A nil pointer or empty
// enum means unknown, which is distinct from false or zero.
type State struct {
	Active             *bool
	Mode               Mode
	TargetTemperature  *float64 // celsius
	CurrentTemperature *float64 // celsius
	RelativeHumidity   *float64
	SmartMode          *SmartMode
	Light              *bool
	PureBoost          *bool
	FilterChange       FilterChange
	FilterLifeLevel    *int
	HorizontalSwing    Swing
	VerticalSwing      Swing
	FanSpeed           *int

	AirQuality            *int
	VOCDensity            *float64
	CarbonDioxideDetected *bool
	CarbonDioxideLevel    *float64

	MotionDetected *bool
	LowBattery     *bool
	Occupancy      *bool
}

// Field names a single member of State for Get and Set
type Field string

const (
	FieldActive                Field = "active"
	FieldMode                  Field = "mode"
	FieldTargetTemperature     Field = "targetTemperature"
	FieldCurrentTemperature    Field = "currentTemperature"
	FieldRelativeHumidity      Field = "relativeHumidity"
	FieldSmartMode             Field = "smartMode"
	FieldLight                 Field = "light"
	FieldPureBoost             Field = "pureBoost"
	FieldFilterChange          Field = "filterChange"
	FieldFilterLifeLevel       Field = "filterLifeLevel"
	FieldHorizontalSwing       Field = "horizontalSwing"
	FieldVerticalSwing         Field = "verticalSwing"
	FieldFanSpeed              Field = "fanSpeed"
	FieldAirQuality            Field = "airQuality"
	FieldVOCDensity            Field = "VOCDensity"
	FieldCarbonDioxideDetected Field = "carbonDioxideDetected"
	FieldCarbonDioxideLevel    Field = "carbonDioxideLevel"
	FieldMotionDetected        Field = "motionDetected"
	FieldLowBattery            Field = "lowBattery"
	FieldOccupancy             Field = "occupancy"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrFieldType    = errors.New("wrong value type for field")
)

func Bool(b bool) *bool        { return &b }
func Float(f float64) *float64 { return &f }
func Int(i int) *int           { return &i }

func cloneBool(b *bool) *bool        { return clonePtr(b) }
func cloneFloat(f *float64) *float64 { return clonePtr(f) }
func cloneInt(i *int) *int           { return clonePtr(i) }

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Clone returns a deep copy
func (s State) Clone() State {
	n := s
	n.Active = cloneBool(s.Active)
	n.TargetTemperature = cloneFloat(s.TargetTemperature)
	n.CurrentTemperature = cloneFloat(s.CurrentTemperature)
	n.RelativeHumidity = cloneFloat(s.RelativeHumidity)
	n.SmartMode = s.SmartMode.clone()
	n.Light = cloneBool(s.Light)
	n.PureBoost = cloneBool(s.PureBoost)
	n.FilterLifeLevel = cloneInt(s.FilterLifeLevel)
	n.FanSpeed = cloneInt(s.FanSpeed)
	n.AirQuality = cloneInt(s.AirQuality)
	n.VOCDensity = cloneFloat(s.VOCDensity)
	n.CarbonDioxideDetected = cloneBool(s.CarbonDioxideDetected)
	n.CarbonDioxideLevel = cloneFloat(s.CarbonDioxideLevel)
	n.MotionDetected = cloneBool(s.MotionDetected)
	n.LowBattery = cloneBool(s.LowBattery)
	n.Occupancy = cloneBool(s.Occupancy)
	return n
}

// merge copies every known field of p into s
func (s *State) merge(p State) {
	p = p.Clone()
	for _, f := range fields {
		if v := p.get(f); v != nil {
			_ = s.set(f, v)
		}
	}
}

// Overlay returns a copy of s with every known field of p laid on top
func (s State) Overlay(p State) State {
	n := s.Clone()
	n.merge(p)
	return n
}

var fields = []Field{
	FieldActive, FieldMode, FieldTargetTemperature, FieldCurrentTemperature,
	FieldRelativeHumidity, FieldSmartMode, FieldLight, FieldPureBoost,
	FieldFilterChange, FieldFilterLifeLevel, FieldHorizontalSwing,
	FieldVerticalSwing, FieldFanSpeed, FieldAirQuality, FieldVOCDensity,
	FieldCarbonDioxideDetected, FieldCarbonDioxideLevel, FieldMotionDetected,
	FieldLowBattery, FieldOccupancy,
}

// get returns the plain value of f, or nil when unknown
func (s *State) get(f Field) any {
	switch f {
	case FieldActive:
		return deref(s.Active)
	case FieldMode:
		return enum(s.Mode)
	case FieldTargetTemperature:
		return deref(s.TargetTemperature)
	case FieldCurrentTemperature:
		return deref(s.CurrentTemperature)
	case FieldRelativeHumidity:
		return deref(s.RelativeHumidity)
	case FieldSmartMode:
		if s.SmartMode == nil {
			return nil
		}
		return *s.SmartMode.clone()
	case FieldLight:
		return deref(s.Light)
	case FieldPureBoost:
		return deref(s.PureBoost)
	case FieldFilterChange:
		return enum(s.FilterChange)
	case FieldFilterLifeLevel:
		return deref(s.FilterLifeLevel)
	case FieldHorizontalSwing:
		return enum(s.HorizontalSwing)
	case FieldVerticalSwing:
		return enum(s.VerticalSwing)
	case FieldFanSpeed:
		return deref(s.FanSpeed)
	case FieldAirQuality:
		return deref(s.AirQuality)
	case FieldVOCDensity:
		return deref(s.VOCDensity)
	case FieldCarbonDioxideDetected:
		return deref(s.CarbonDioxideDetected)
	case FieldCarbonDioxideLevel:
		return deref(s.CarbonDioxideLevel)
	case FieldMotionDetected:
		return deref(s.MotionDetected)
	case FieldLowBattery:
		return deref(s.LowBattery)
	case FieldOccupancy:
		return deref(s.Occupancy)
	}
	return nil
}

// set stores v into f; a nil v marks the field unknown
func (s *State) set(f Field, v any) error {
	var err error
	switch f {
	case FieldActive:
		s.Active, err = ptrOf[bool](f, v)
	case FieldMode:
		s.Mode, err = enumOf[Mode](f, v)
	case FieldTargetTemperature:
		s.TargetTemperature, err = ptrOf[float64](f, v)
	case FieldCurrentTemperature:
		s.CurrentTemperature, err = ptrOf[float64](f, v)
	case FieldRelativeHumidity:
		s.RelativeHumidity, err = ptrOf[float64](f, v)
	case FieldSmartMode:
		switch sm := v.(type) {
		case nil:
			s.SmartMode = nil
		case SmartMode:
			s.SmartMode = sm.clone()
		case *SmartMode:
			s.SmartMode = sm.clone()
		default:
			err = fmt.Errorf("%w: %s %T", ErrFieldType, f, v)
		}
	case FieldLight:
		s.Light, err = ptrOf[bool](f, v)
	case FieldPureBoost:
		s.PureBoost, err = ptrOf[bool](f, v)
	case FieldFilterChange:
		s.FilterChange, err = enumOf[FilterChange](f, v)
	case FieldFilterLifeLevel:
		s.FilterLifeLevel, err = ptrOf[int](f, v)
	case FieldHorizontalSwing:
		s.HorizontalSwing, err = enumOf[Swing](f, v)
	case FieldVerticalSwing:
		s.VerticalSwing, err = enumOf[Swing](f, v)
	case FieldFanSpeed:
		s.FanSpeed, err = ptrOf[int](f, v)
	case FieldAirQuality:
		s.AirQuality, err = ptrOf[int](f, v)
	case FieldVOCDensity:
		s.VOCDensity, err = ptrOf[float64](f, v)
	case FieldCarbonDioxideDetected:
		s.CarbonDioxideDetected, err = ptrOf[bool](f, v)
	case FieldCarbonDioxideLevel:
		s.CarbonDioxideLevel, err = ptrOf[float64](f, v)
	case FieldMotionDetected:
		s.MotionDetected, err = ptrOf[bool](f, v)
	case FieldLowBattery:
		s.LowBattery, err = ptrOf[bool](f, v)
	case FieldOccupancy:
		s.Occupancy, err = ptrOf[bool](f, v)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return err
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func enum[T ~string](e T) any {
	if e == "" {
		return nil
	}
	return e
}

func ptrOf[T any](f Field, v any) (*T, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case T:
		return &t, nil
	case *T:
		return clonePtr(t), nil
	}
	return nil, fmt.Errorf("%w: %s %T", ErrFieldType, f, v)
}

func enumOf[T ~string](f Field, v any) (T, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case T:
		return t, nil
	}
	return "", fmt.Errorf("%w: %s %T", ErrFieldType, f, v)
}

func equalValues(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
