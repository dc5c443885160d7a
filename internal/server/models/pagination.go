package models

import "math"

// Pagination holds the requested page and limit, and after a query also the
// total result count.
type Pagination struct {
	Page       int
	Limit      int
	TotalCount int
	PageCount  int
}

func (p *Pagination) SetTotalCount(count int) {
	p.TotalCount = count
	p.PageCount = int(math.Ceil(float64(count) / float64(p.Limit)))
}
