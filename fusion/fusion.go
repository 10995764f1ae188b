// Package fusion derives context values from typed sensor samples. The
// transform is a pure function: no registry coupling, no state, the result is
// consumed as an opaque payload attached to a task or cognitive context.
package fusion

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hivemesh/hivemesh/core"
)

// SensorType classifies a sample and selects its transform.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorBattery     SensorType = "battery"
	SensorMotion      SensorType = "motion"
	SensorGeneric     SensorType = "generic"
)

// ErrUnknownSensorType is returned when fusing a sample whose type has no
// transform.
var ErrUnknownSensorType = errors.New("unknown sensor type")

// Sample is a single typed sensor reading.
type Sample struct {
	SensorID  string     `json:"sensor_id"`
	Type      SensorType `json:"type"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ContextValue is the derived reading handed to downstream consumers.
// Attributes carry the per-type derived fields; Digest is a content hash of
// the source sample for audit correlation.
type ContextValue struct {
	SensorID   string         `json:"sensor_id"`
	Kind       string         `json:"kind"`
	Value      float64        `json:"value"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Digest     string         `json:"digest"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Fuse maps a typed sample to its derived context value. Unknown sensor
// types raise immediately.
func Fuse(s Sample) (ContextValue, error) {
	cv := ContextValue{
		SensorID:  s.SensorID,
		Kind:      string(s.Type),
		Value:     s.Value,
		Digest:    core.HashPayload(s),
		Timestamp: s.Timestamp,
	}
	switch s.Type {
	case SensorTemperature:
		cv.Attributes = map[string]any{
			"celsius":    s.Value,
			"fahrenheit": s.Value*9/5 + 32,
			"band":       temperatureBand(s.Value),
		}
	case SensorBattery:
		pct := math.Max(0, math.Min(100, s.Value))
		cv.Value = pct
		cv.Attributes = map[string]any{
			"percent":  pct,
			"critical": pct < 15,
		}
	case SensorMotion:
		// Value is the acceleration magnitude; anything above the noise
		// floor counts as movement.
		cv.Attributes = map[string]any{
			"magnitude": math.Abs(s.Value),
			"moving":    math.Abs(s.Value) > 0.05,
		}
	case SensorGeneric:
		// Passthrough: no derived attributes beyond the digest.
	default:
		return ContextValue{}, fmt.Errorf("%w: %q", ErrUnknownSensorType, s.Type)
	}
	return cv, nil
}

// FuseAll transforms a batch of samples, failing on the first unknown type.
func FuseAll(samples []Sample) ([]ContextValue, error) {
	out := make([]ContextValue, 0, len(samples))
	for _, s := range samples {
		cv, err := Fuse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, nil
}

func temperatureBand(celsius float64) string {
	switch {
	case celsius < 0:
		return "freezing"
	case celsius < 18:
		return "cold"
	case celsius < 28:
		return "comfortable"
	default:
		return "hot"
	}
}
