package types

import "fmt"

// VenueError is a non-zero errno response from the venue API. The venue
// wraps every response in an {errno, errmsg, result} envelope; transport
// succeeded but the operation was rejected.
type VenueError struct {
	Errno   int
	Errmsg  string
	Op      string // operation that failed: "place-order", "cancel-order", ...
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue %s failed: %s (errno %d)", e.Op, e.Errmsg, e.Errno)
}

// ErrCredentials marks missing or rejected credentials; fatal at task
// start, never retried.
type ErrCredentials struct {
	Missing []string
}

func (e *ErrCredentials) Error() string {
	if len(e.Missing) == 0 {
		return "credentials rejected by venue"
	}
	return fmt.Sprintf("missing credentials: %v", e.Missing)
}
