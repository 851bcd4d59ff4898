package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/voxbot/internal/common"
)

// Speed is a named synthesis pace.
type Speed string

const (
	SpeedFast    Speed = "fast"
	SpeedNormal  Speed = "normal"
	SpeedNatural Speed = "natural"
	SpeedSlow    Speed = "slow"

	DefaultSpeed = SpeedNatural
)

var Speeds = []Speed{SpeedFast, SpeedNormal, SpeedNatural, SpeedSlow}

var speedValues = map[Speed]float64{
	SpeedFast:    1.08,
	SpeedNormal:  1.00,
	SpeedNatural: 0.94,
	SpeedSlow:    0.88,
}

var speedLabels = map[Speed]string{
	SpeedFast:    "Fast",
	SpeedNormal:  "Normal",
	SpeedNatural: "Natural",
	SpeedSlow:    "Slow",
}

// ParseSpeed accepts a speed name in any case.
func ParseSpeed(s string) (Speed, error) {
	sp := Speed(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := speedValues[sp]; !ok {
		return "", fmt.Errorf("%w: %q", common.ErrInvalidSpeed, s)
	}
	return sp, nil
}

// Value is the multiplier sent to the synthesis backend. Unknown speeds map
// to the default.
func (s Speed) Value() float64 {
	if v, ok := speedValues[s]; ok {
		return v
	}
	return speedValues[DefaultSpeed]
}

func (s Speed) Label() string {
	if l, ok := speedLabels[s]; ok {
		return l
	}
	return speedLabels[DefaultSpeed]
}

// OrDefault returns s, or DefaultSpeed when s is not a known speed.
func (s Speed) OrDefault() Speed {
	if _, ok := speedValues[s]; ok {
		return s
	}
	return DefaultSpeed
}
