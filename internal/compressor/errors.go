package compressor

import "fmt"

// DecodeError reports that the input bytes could not be decoded as an image.
// Callers should treat it as a client problem (unsupported or corrupt input),
// distinct from a codec failure during encoding.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports that the WebP codec failed while encoding an attempt.
// Quality is the level that was being encoded when the failure occurred.
type EncodeError struct {
	Quality int
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode webp at quality %d: %v", e.Quality, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
