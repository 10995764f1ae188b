package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOf(st SensorType, value float64) Sample {
	return Sample{
		SensorID:  "sensor-1",
		Type:      st,
		Value:     value,
		Timestamp: time.Unix(1000, 0),
	}
}

func TestFuseTemperature(t *testing.T) {
	cv, err := Fuse(sampleOf(SensorTemperature, 20))
	require.NoError(t, err)

	assert.Equal(t, "temperature", cv.Kind)
	assert.Equal(t, 20.0, cv.Attributes["celsius"])
	assert.Equal(t, 68.0, cv.Attributes["fahrenheit"])
	assert.Equal(t, "comfortable", cv.Attributes["band"])
	assert.NotEmpty(t, cv.Digest)
}

func TestTemperatureBands(t *testing.T) {
	tests := []struct {
		celsius float64
		band    string
	}{
		{-5, "freezing"},
		{5, "cold"},
		{25, "comfortable"},
		{35, "hot"},
	}
	for _, tt := range tests {
		cv, err := Fuse(sampleOf(SensorTemperature, tt.celsius))
		require.NoError(t, err)
		assert.Equal(t, tt.band, cv.Attributes["band"], "celsius %v", tt.celsius)
	}
}

func TestFuseBatteryClampsAndFlagsCritical(t *testing.T) {
	cv, err := Fuse(sampleOf(SensorBattery, 120))
	require.NoError(t, err)
	assert.Equal(t, 100.0, cv.Value)
	assert.Equal(t, false, cv.Attributes["critical"])

	cv, err = Fuse(sampleOf(SensorBattery, 10))
	require.NoError(t, err)
	assert.Equal(t, true, cv.Attributes["critical"])
}

func TestFuseMotion(t *testing.T) {
	cv, err := Fuse(sampleOf(SensorMotion, -0.3))
	require.NoError(t, err)
	assert.Equal(t, 0.3, cv.Attributes["magnitude"])
	assert.Equal(t, true, cv.Attributes["moving"])

	cv, err = Fuse(sampleOf(SensorMotion, 0.01))
	require.NoError(t, err)
	assert.Equal(t, false, cv.Attributes["moving"])
}

func TestFuseGenericIsPassthrough(t *testing.T) {
	cv, err := Fuse(sampleOf(SensorGeneric, 42))
	require.NoError(t, err)
	assert.Equal(t, 42.0, cv.Value)
	assert.Nil(t, cv.Attributes)
}

func TestFuseUnknownType(t *testing.T) {
	_, err := Fuse(sampleOf("humidity", 1))
	assert.ErrorIs(t, err, ErrUnknownSensorType)
}

func TestFuseAllFailsFast(t *testing.T) {
	samples := []Sample{
		sampleOf(SensorTemperature, 20),
		sampleOf("bogus", 1),
	}
	_, err := FuseAll(samples)
	assert.ErrorIs(t, err, ErrUnknownSensorType)

	out, err := FuseAll(samples[:1])
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestDigestIsStablePerSample(t *testing.T) {
	a, err := Fuse(sampleOf(SensorGeneric, 1))
	require.NoError(t, err)
	b, err := Fuse(sampleOf(SensorGeneric, 1))
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest)

	c, err := Fuse(sampleOf(SensorGeneric, 2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest, c.Digest)
}
