package id

import "github.com/segmentio/ksuid"

// New returns a time-ordered run identifier.
func New() string {
	return ksuid.New().String()
}
