// Package compressor re-encodes an image into lossy WebP at or below a
// target byte size using a monotonic linear quality search.
//
// The search starts at a high quality level and walks down in fixed steps,
// returning the first encode that fits the target. If the floor is reached
// without success, one final attempt is made below the floor and the
// best-effort result is returned with TargetReached set to false. The search
// never re-attempts a quality, never increases quality, and is bounded:
// at most ceil((StartQuality-MinQuality)/Step)+1 encodes.
package compressor

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

// Defaults for Config fields left at zero.
const (
	DefaultTargetBytes  = 100 * 1024
	DefaultMinQuality   = 20
	DefaultStartQuality = 90
	DefaultStep         = 8

	// fallbackFloor is the lowest quality the final attempt may use.
	fallbackFloor = 10

	// OutputFormat is the container every result is encoded in.
	OutputFormat = "webp"
)

// Config controls the quality search.
type Config struct {
	// TargetBytes is the desired maximum output size.
	TargetBytes int
	// MinQuality is the lower bound of the primary search range.
	MinQuality int
	// StartQuality is the first quality level attempted.
	StartQuality int
	// Step is the quality decrement per unsuccessful attempt.
	Step int
	// MaxDimension, when positive, downscales the image so neither side
	// exceeds it before the quality search begins. Zero disables scaling.
	MaxDimension int
}

func (c Config) withDefaults() Config {
	if c.TargetBytes == 0 {
		c.TargetBytes = DefaultTargetBytes
	}
	if c.MinQuality == 0 {
		c.MinQuality = DefaultMinQuality
	}
	if c.StartQuality == 0 {
		c.StartQuality = DefaultStartQuality
	}
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	return c
}

// Result is the terminal output of a compression run.
type Result struct {
	// Data is the encoded WebP buffer. Always present, even when the
	// target size was not reached.
	Data []byte
	// Quality is the codec quality level the returned buffer was encoded at.
	Quality int
	// TargetReached reports whether len(Data) <= TargetBytes.
	TargetReached bool
	// Format is the output container name ("webp").
	Format string
	// Attempts is the number of encode operations performed.
	Attempts int
}

// encodeFunc encodes img at the given lossy quality level.
type encodeFunc func(img image.Image, quality int) ([]byte, error)

// Compress decodes data, normalizes its orientation, and re-encodes it as
// lossy WebP at or below cfg.TargetBytes.
//
// A best-effort result (TargetReached == false) is not an error. Errors are
// one of two variants: *DecodeError when the input cannot be decoded, and
// *EncodeError when the codec fails during the search.
func Compress(data []byte, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	img = normalizeOrientation(img, data)
	if cfg.MaxDimension > 0 {
		img = downscale(img, cfg.MaxDimension)
	}

	log.Debug().
		Str("input_format", format).
		Int("input_size", len(data)).
		Int("target_bytes", cfg.TargetBytes).
		Int("start_quality", cfg.StartQuality).
		Msg("Starting quality search")

	res, err := searchQuality(img, cfg, encodeWebP)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("output_size", len(res.Data)).
		Int("quality", res.Quality).
		Int("attempts", res.Attempts).
		Bool("target_reached", res.TargetReached).
		Msg("Quality search complete")

	return res, nil
}

// searchQuality runs the monotonic descent: encode at StartQuality, walk
// down by Step while the output exceeds the target, stop below MinQuality.
// The fallback attempt below the floor always runs when the ladder is
// exhausted, even if a ladder encode was already close to the target.
func searchQuality(img image.Image, cfg Config, encode encodeFunc) (*Result, error) {
	attempts := 0

	for quality := cfg.StartQuality; quality >= cfg.MinQuality; quality -= cfg.Step {
		buf, err := encode(img, quality)
		attempts++
		if err != nil {
			return nil, &EncodeError{Quality: quality, Err: err}
		}
		if len(buf) <= cfg.TargetBytes {
			return &Result{
				Data:          buf,
				Quality:       quality,
				TargetReached: true,
				Format:        OutputFormat,
				Attempts:      attempts,
			}, nil
		}
	}

	// Quality floor reached without success: one final attempt below the
	// primary range, returned as best-effort whether or not it fits.
	quality := cfg.MinQuality - 5
	if quality < fallbackFloor {
		quality = fallbackFloor
	}
	buf, err := encode(img, quality)
	attempts++
	if err != nil {
		return nil, &EncodeError{Quality: quality, Err: err}
	}

	return &Result{
		Data:          buf,
		Quality:       quality,
		TargetReached: len(buf) <= cfg.TargetBytes,
		Format:        OutputFormat,
		Attempts:      attempts,
	}, nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality), Lossless: false}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
