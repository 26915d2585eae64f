package batch

import (
	"fmt"
	"time"
)

// Identity is the run-scoped token the service uses to correlate the calls
// of one run.
type Identity string

// NewIdentity derives a run token from the run start time.
func NewIdentity(start time.Time) Identity {
	return Identity(fmt.Sprintf("snapshot-%d", start.UnixMilli()))
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}
