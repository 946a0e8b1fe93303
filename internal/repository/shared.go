package repository

// Pagination holds pagination parameters for listing local entries.
type Pagination struct {
	PageNo   int32
	PageSize int32
}

// Offset returns the zero-based row offset for the page. Pages start at 1.
func (p *Pagination) Offset() int32 {
	if p.PageNo <= 1 || p.PageSize <= 0 {
		return 0
	}
	return (p.PageNo - 1) * p.PageSize
}

// FilterOrder carries raw CEL filter and order_by inputs.
type FilterOrder struct {
	Filter  string
	OrderBy string
}

func (fo *FilterOrder) GetFilter() string { return fo.Filter }

func (fo *FilterOrder) GetOrderBy() string { return fo.OrderBy }
