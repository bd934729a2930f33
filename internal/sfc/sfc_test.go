package sfc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRateRoundTrips(t *testing.T) {
	for _, rate := range SupportedRates() {
		code, ok := FromRate(rate)
		require.True(t, ok, "rate %d should resolve to a code", rate)
		assert.Equal(t, rate, code.Rate())
	}
}

func TestFromRateRejectsUnsupported(t *testing.T) {
	_, ok := FromRate(44099)
	assert.False(t, ok)
}

func TestSytIntervalByFamily(t *testing.T) {
	cases := map[Code]uint32{
		Code32000: 8, Code44100: 8, Code48000: 8,
		Code88200: 16, Code96000: 16,
		Code176400: 32, Code192000: 32,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.SytInterval(), "code %v", code)
	}
}

func TestIsBase44100(t *testing.T) {
	for _, c := range []Code{Code44100, Code88200, Code176400} {
		assert.True(t, c.IsBase44100(), "%v should be in the 44.1kHz family", c)
	}
	for _, c := range []Code{Code32000, Code48000, Code96000, Code192000} {
		assert.False(t, c.IsBase44100(), "%v should not be in the 44.1kHz family", c)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Code48000.Valid())
	assert.False(t, Code(200).Valid())
}
