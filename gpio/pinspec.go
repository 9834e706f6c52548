package gpio

import (
	"fmt"
	"strconv"
	"strings"
)

// Polarity is the level of the enable pin that switches the regulator on.
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Drive is the output stage used to drive the enable pin.
type Drive int

const (
	PushPull Drive = iota
	OpenDrain
	OpenSource
)

// PinSpec is a parsed enable pin specification.
type PinSpec struct {
	// Name is the pin as written, without options (e.g. "GPIO18" or "18").
	Name string

	// LineNum is the GPIO line number (e.g. 18 for GPIO18).
	LineNum int

	Polarity Polarity
	Drive    Drive
}

// ParsePin parses an enable pin specification.
// Format: "pin[:active-high|active-low][:push-pull|open-drain|open-source]"
// Examples: "GPIO18", "GPIO18:active-low", "18:active-low:open-drain"
func ParsePin(pinSpec string) (*PinSpec, error) {
	parts := strings.Split(pinSpec, ":")
	name := strings.TrimSpace(parts[0])

	lineNum, err := ParsePinNumber(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPinSpec, err)
	}

	spec := &PinSpec{
		Name:     name,
		LineNum:  lineNum,
		Polarity: ActiveHigh,
		Drive:    PushPull,
	}

	for _, part := range parts[1:] {
		param := strings.ToLower(strings.TrimSpace(part))
		switch param {
		case "active-high":
			spec.Polarity = ActiveHigh
		case "active-low":
			spec.Polarity = ActiveLow
		case "push-pull":
			spec.Drive = PushPull
		case "open-drain":
			spec.Drive = OpenDrain
		case "open-source":
			spec.Drive = OpenSource
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q in %q", ErrInvalidPinSpec, param, pinSpec)
		}
	}

	return spec, nil
}

// ParsePinNumber parses a GPIO pin name and returns the line number.
// Supports both "GPIO<number>" and "<number>" formats.
func ParsePinNumber(pinName string) (int, error) {
	numStr := pinName
	if strings.HasPrefix(strings.ToUpper(pinName), "GPIO") {
		numStr = pinName[len("GPIO"):]
	}

	lineNum, err := strconv.Atoi(numStr)
	if err != nil || lineNum < 0 {
		return 0, fmt.Errorf("invalid GPIO pin format: %q (expected GPIO<number> or <number>)", pinName)
	}
	return lineNum, nil
}

func (p Polarity) String() string {
	switch p {
	case ActiveHigh:
		return "active-high"
	case ActiveLow:
		return "active-low"
	default:
		return "unknown"
	}
}

func (d Drive) String() string {
	switch d {
	case PushPull:
		return "push-pull"
	case OpenDrain:
		return "open-drain"
	case OpenSource:
		return "open-source"
	default:
		return "unknown"
	}
}

// String returns the canonical form of the specification, which ParsePin
// accepts.
func (ps *PinSpec) String() string {
	return fmt.Sprintf("GPIO%d:%s:%s", ps.LineNum, ps.Polarity, ps.Drive)
}
