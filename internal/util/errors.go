package util

import "errors"

var (
	// ErrChunkConfig rejects overlap >= size up front instead of clamping;
	// a clamped value would silently change chunk geometry mid-corpus.
	ErrChunkConfig = errors.New("chunk overlap must be smaller than chunk size")

	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	// ErrInvalidRequest marks caller input rejected before any work starts.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUpstreamUnavailable marks an embedding or completion service that is
	// wholly unreachable, the only condition surfaced as a hard failure.
	ErrUpstreamUnavailable = errors.New("upstream capability unavailable")
)
