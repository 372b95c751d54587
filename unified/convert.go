package unified

import (
	"math"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/state"
)

// swing and fan vocabulary of the remote API
const (
	FanAuto = "auto"

	SwingStopped    = "stopped"
	SwingRangeFull  = "rangeFull"
	SwingHorizontal = "horizontal"
	SwingBoth       = "both"

	LightOn  = "on"
	LightOff = "off"
)

func ToCelsius(f float64) float64 {
	return (f - 32) / 1.8
}

// ToFahrenheit rounds to whole degrees, the only step units accept in F
func ToFahrenheit(c float64) float64 {
	return math.Round(c*1.8 + 32)
}

func withoutAuto(levels []string) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		if l != FanAuto {
			out = append(out, l)
		}
	}
	return out
}

// FanLevelToPercent maps a named fan level onto 0-100. auto and unknown
// levels map to 0.
func FanLevelToPercent(level string, levels []string) int {
	if level == FanAuto {
		return 0
	}

	named := withoutAuto(levels)
	total := len(named)
	if total == 0 {
		total = 1
	}
	idx := 0
	for i, l := range named {
		if l == level {
			idx = i + 1
			break
		}
	}
	return int(math.Round(100 * float64(idx) / float64(total)))
}

// PercentToFanLevel picks the first level whose share of 100 reaches v.
// 0 selects auto, or the first level when the unit has no auto.
func PercentToFanLevel(v int, levels []string) string {
	if len(levels) == 0 {
		return ""
	}

	selected := FanAuto
	hasAuto := false
	for _, l := range levels {
		if l == FanAuto {
			hasAuto = true
		}
	}
	if !hasAuto {
		selected = levels[0]
	}
	if v == 0 {
		return selected
	}

	named := withoutAuto(levels)
	for i, l := range named {
		if float64(v) <= math.Round(100*float64(i+1)/float64(len(named))) {
			return l
		}
	}
	return selected
}

// SwingState reads the swing fields of an acState into separate horizontal
// and vertical flags
func SwingState(swing, horizontal string) (h state.Swing, v state.Swing) {
	h, v = state.SwingDisabled, state.SwingDisabled

	switch swing {
	case SwingRangeFull:
		v = state.SwingEnabled
	case SwingHorizontal:
		h = state.SwingEnabled
	case SwingBoth:
		h, v = state.SwingEnabled, state.SwingEnabled
	}
	if horizontal == SwingRangeFull {
		h = state.SwingEnabled
	}
	return h, v
}

// SwingModes is the reverse of SwingState for a mode's capabilities. Units
// with three dimensional swing take both flags in the swing field; the rest
// use swing for vertical and horizontalSwing for horizontal.
func SwingModes(mc state.ModeCapabilities, h, v state.Swing) (swing, horizontal string) {
	hOn := h == state.SwingEnabled
	vOn := v == state.SwingEnabled

	if mc.ThreeDimensionalSwing {
		switch {
		case hOn && vOn:
			return SwingBoth, ""
		case vOn:
			return SwingRangeFull, ""
		case hOn:
			return SwingHorizontal, ""
		}
		return SwingStopped, ""
	}

	if mc.VerticalSwing {
		swing = SwingStopped
		if vOn {
			swing = SwingRangeFull
		}
	}
	if mc.HorizontalSwing {
		horizontal = SwingStopped
		if hOn {
			horizontal = SwingRangeFull
		}
	}
	return swing, horizontal
}

func lightString(on bool) string {
	if on {
		return LightOn
	}
	return LightOff
}
