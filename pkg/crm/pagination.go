package crm

import "time"

// PaginationMode selects how a request is executed with respect to paging.
type PaginationMode int

const (
	// PaginationOff executes exactly one call.
	PaginationOff PaginationMode = iota
	// PaginationAuto follows the cursor until the stream is exhausted.
	PaginationAuto
)

// Pagination is the pagination descriptor carried by a request.
type Pagination struct {
	Mode PaginationMode
	// Concurrency is the number of pages requested per step when Mode is
	// PaginationAuto. Values below 2 mean sequential paging.
	Concurrency int
}

// IsAuto reports whether the request auto-paginates.
func (p Pagination) IsAuto() bool {
	return p.Mode == PaginationAuto
}

// Width returns the number of pages fetched per paginator step.
func (p Pagination) Width() int {
	if p.Concurrency < 1 {
		return 1
	}

	return p.Concurrency
}

// SoftLimits are caller-declared caps enforced after each page is received,
// never by instructing the remote API.
type SoftLimits struct {
	// MaxItems stops pagination once this many items were collected. Zero disables it.
	MaxItems int
	// MaxModifiedTime stops pagination at the first item modified after this
	// instant. The stream must be sorted by modification time ascending.
	MaxModifiedTime time.Time
}

// IsZero reports whether no soft limit is set.
func (l SoftLimits) IsZero() bool {
	return l.MaxItems <= 0 && l.MaxModifiedTime.IsZero()
}
