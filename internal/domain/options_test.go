package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversionOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    ConversionOptions
		wantErr bool
	}{
		{"defaults", DefaultConversionOptions(), false},
		{"format only", ConversionOptions{Format: FormatFLAC}, false},
		{"wav with sample rate", ConversionOptions{Format: FormatWAV, SampleRateHz: 48000}, false},
		{"mono aac", ConversionOptions{Format: FormatAAC, Channels: 1}, false},
		{"missing format", ConversionOptions{}, true},
		{"unknown format", ConversionOptions{Format: "ogg"}, true},
		{"negative bitrate", ConversionOptions{Format: FormatMP3, BitrateKbps: -1}, true},
		{"negative sample rate", ConversionOptions{Format: FormatMP3, SampleRateHz: -44100}, true},
		{"three channels", ConversionOptions{Format: FormatMP3, Channels: 3}, true},
		{"quality out of range", ConversionOptions{Format: FormatMP3, Quality: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()
	assert.ElementsMatch(t, []AudioFormat{FormatMP3, FormatAAC, FormatWAV, FormatFLAC}, formats)
}
