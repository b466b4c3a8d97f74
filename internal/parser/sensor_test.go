package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
)

func TestParseSensorLine(t *testing.T) {
	f, err := ParseSensorLine("ENC,1200,-35\r\n")
	require.NoError(t, err)
	assert.Equal(t, model.SensorFrame{Kind: model.FrameEncoder, LeftTicks: 1200, RightTicks: -35, LeftOK: true, RightOK: true}, f)

	f, err = ParseSensorLine("ENC,-,88")
	require.NoError(t, err)
	assert.False(t, f.LeftOK)
	assert.True(t, f.RightOK)

	f, err = ParseSensorLine("IMU,-92.5,14.25")
	require.NoError(t, err)
	assert.Equal(t, -92.5, f.Heading)
	assert.Equal(t, 14.25, f.Rate)

	f, err = ParseSensorLine("VBAT,11.84")
	require.NoError(t, err)
	assert.Equal(t, 11.84, f.Voltage)
}

func TestParseSensorLineErrors(t *testing.T) {
	for _, line := range []string{"", "ENC,1", "ENC,a,1", "IMU,1", "IMU,x,1", "VBAT", "GPS,1,2"} {
		_, err := ParseSensorLine(line)
		assert.Error(t, err, line)
	}
}

func TestFormatSensorLine(t *testing.T) {
	frames := []model.SensorFrame{
		{Kind: model.FrameEncoder, LeftTicks: 10, RightTicks: 20, LeftOK: true, RightOK: true},
		{Kind: model.FrameEncoder, RightTicks: 20, RightOK: true},
		{Kind: model.FrameIMU, Heading: 45.5, Rate: -1.25},
		{Kind: model.FrameVoltage, Voltage: 12.5},
	}
	for _, f := range frames {
		got, err := ParseSensorLine(FormatSensorLine(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	assert.Equal(t, "ENC,-,20", FormatSensorLine(frames[1]))
}

func TestPowerLine(t *testing.T) {
	line := FormatPowerLine("R", -0.75)
	assert.Equal(t, "PWR,R,-0.7500", line)

	side, v, err := ParsePowerLine(line)
	require.NoError(t, err)
	assert.Equal(t, "R", side)
	assert.Equal(t, -0.75, v)

	_, _, err = ParsePowerLine("PWR,X,0.1")
	assert.Error(t, err)
	_, _, err = ParsePowerLine("ENC,1,2")
	assert.Error(t, err)
}
