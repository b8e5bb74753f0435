package domain

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest selects a zero-based page of a sorted listing.
type PageRequest struct {
	Page    int
	Size    int
	SortKey string
}

// Normalize clamps the request to sane bounds and applies defaults.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.SortKey == "" {
		p.SortKey = "id"
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

type CustomerPage struct {
	Customers []Customer
	Page      int
	Size      int
	Total     int64
}
