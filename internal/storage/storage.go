// Package storage publishes compressed image buffers to a remote hosted
// image-storage service and returns durable access URLs.
//
// The service is modeled as the Publisher capability so the HTTP layer and
// its tests never need a live network collaborator. Two backends are
// provided: a Cloudinary-backed publisher (data URI envelope) and an
// S3-compatible publisher (raw object under a UUID key).
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Publisher submits a compressed image buffer under a namespace and returns
// its public location. Implementations make a single external call with no
// local retry; failures surface as *PublishError.
type Publisher interface {
	Publish(ctx context.Context, data []byte, namespace string) (*PublishResult, error)
}

// PublishResult is the collaborator's answer for a stored object.
type PublishResult struct {
	// URL is a durable, secure retrieval URL.
	URL string
	// ID is the collaborator-assigned opaque identifier.
	ID string
}

// PublishError carries the collaborator's failure with an HTTP-like status
// code so the transport layer can map it without inspecting backend types.
type PublishError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish: %s (status %d): %v", e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("publish: %s (status %d)", e.Message, e.StatusCode)
}

func (e *PublishError) Unwrap() error { return e.Err }

// DataURI wraps data in a self-describing base64 data URI, the transport
// envelope hosted image services accept for inline uploads.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
