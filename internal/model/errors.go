package model

import "errors"

var (
	// ErrUnauthorized means the request carries no valid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidImageFormat means the codec could not decode the upload.
	ErrInvalidImageFormat = errors.New("invalid image format")
	// ErrTierNotFound means a referenced account tier does not exist.
	ErrTierNotFound = errors.New("account tier not found")
	// ErrTierExists means a tier with the same name is already registered.
	ErrTierExists = errors.New("account tier already exists")
	// ErrInvalidTier means a tier has no name or a non-positive size or TTL.
	ErrInvalidTier = errors.New("invalid account tier")
	// ErrArtifactWriteFailed means a content-store write failed or timed out during an upload.
	ErrArtifactWriteFailed = errors.New("artifact write failed")
	// ErrArtifactNotProduced means the requested derivative was never created for the image.
	ErrArtifactNotProduced = errors.New("artifact not produced")
)
