package store

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Page  int // 1-based page number (defaults to 1)
	Limit int // Items per page (defaults to 20 with a maximum of 100)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Page:  1,
		Limit: 20,
	}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Page <= 0 {
		p.Page = 1
	}

	if p.Limit <= 0 {
		p.Limit = 20
	}

	if p.Limit > 100 {
		p.Limit = 100
	}
}

// NewPaginatedResult assembles a result page and computes HasMore.
func NewPaginatedResult[T any](items []T, params PaginationParams, total int) *PaginatedResult[T] {
	return &PaginatedResult[T]{
		Items:   items,
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		HasMore: params.Page*params.Limit < total,
	}
}
