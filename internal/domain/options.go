package domain

import "fmt"

// AudioFormat represents a supported conversion output format
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatAAC  AudioFormat = "aac"
	FormatWAV  AudioFormat = "wav"
	FormatFLAC AudioFormat = "flac"
)

// SupportedFormats returns the audio formats the transcoder accepts
func SupportedFormats() []AudioFormat {
	return []AudioFormat{FormatMP3, FormatAAC, FormatWAV, FormatFLAC}
}

// ConversionOptions describes how a conversion task should encode its output.
// Zero values for the optional fields mean "let the encoder decide".
type ConversionOptions struct {
	Format       AudioFormat `json:"format"`
	BitrateKbps  int         `json:"bitrate_kbps,omitempty"`
	SampleRateHz int         `json:"sample_rate_hz,omitempty"`
	Channels     int         `json:"channels,omitempty"` // 1 or 2
	Quality      int         `json:"quality,omitempty"`  // 0-9, 0 is best
}

// DefaultConversionOptions returns the options used when a caller supplies none
func DefaultConversionOptions() ConversionOptions {
	return ConversionOptions{
		Format:       FormatMP3,
		BitrateKbps:  320,
		SampleRateHz: 44100,
		Channels:     2,
		Quality:      0,
	}
}

// Validate checks the options before a task is created. Invalid options are
// rejected with ErrInvalidOptions; the task never reaches the scheduler.
func (o ConversionOptions) Validate() error {
	switch o.Format {
	case FormatMP3, FormatAAC, FormatWAV, FormatFLAC:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidOptions, o.Format)
	}
	if o.BitrateKbps < 0 {
		return fmt.Errorf("%w: bitrate must be positive, got %d", ErrInvalidOptions, o.BitrateKbps)
	}
	if o.SampleRateHz < 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidOptions, o.SampleRateHz)
	}
	if o.Channels != 0 && o.Channels != 1 && o.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidOptions, o.Channels)
	}
	if o.Quality < 0 || o.Quality > 9 {
		return fmt.Errorf("%w: quality must be within 0-9, got %d", ErrInvalidOptions, o.Quality)
	}
	return nil
}

// MediaMetadata describes a resolved remote media reference
type MediaMetadata struct {
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	SizeBytes       int64   `json:"size_bytes,omitempty"`
	SourceFormat    string  `json:"source_format,omitempty"`
}
