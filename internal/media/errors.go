package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the configured max size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrUnsupportedType indicates the sniffed content type is not accepted
	// for the requested operation.
	ErrUnsupportedType = errors.New("media type not supported")
	// ErrEmptyPayload indicates the platform returned no bytes.
	ErrEmptyPayload = errors.New("media payload is empty")
)
