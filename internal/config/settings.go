package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/vists/internal/domain/model"
)

// ParseSettings overlays the key/value pairs of a settings sheet onto base.
// The K-factor and difference divisor are rounded half up, so -2.5 becomes -2.
// Unknown keys are ignored; blank values keep the base value.
func ParseSettings(base model.Settings, kv map[string]string) (model.Settings, error) {
	out := base
	for key, raw := range kv {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		switch strings.TrimSpace(key) {
		case model.SettingInitialRating:
			v, err := parseNumber(key, raw)
			if err != nil {
				return base, err
			}
			out.InitialRating = v
		case model.SettingKFactor:
			v, err := parseNumber(key, raw)
			if err != nil {
				return base, err
			}
			out.KFactor = roundHalfUp(v)
		case model.SettingDifferenceDivisor:
			v, err := parseNumber(key, raw)
			if err != nil {
				return base, err
			}
			out.DifferenceDivisor = roundHalfUp(v)
		}
	}
	if out.DifferenceDivisor <= 0 {
		return base, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, model.SettingDifferenceDivisor, out.DifferenceDivisor)
	}
	return out, nil
}

func parseNumber(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidSettings, key, raw)
	}
	return v, nil
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
