package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRetrievalFailure marks a failed call to an upstream API: transport
	// errors, non-2xx statuses and error payloads.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrUnexpectedResponseShape marks an upstream response that decoded but
	// lacks the fields we read (no routes, no legs, missing stations...).
	ErrUnexpectedResponseShape = errors.New("unexpected response shape")
)
