package httpclient

// Envelope is the standard single-resource response body.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a paginated list response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Pagination.Page < p.Pagination.TotalPages
}

// errorBody is the standard error response body.
type errorBody struct {
	Message string `json:"message"`
}
