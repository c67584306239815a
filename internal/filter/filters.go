package filter

import "github.com/siahsang/conduit/internal/validator"

const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxOffset    = 10_000_000
)

type Filter struct {
	Limit  int64
	Offset int64
}

// ArticleFilter narrows the article list. Empty string predicates are not applied.
type ArticleFilter struct {
	Filter
	Tag       string
	Author    string
	Favorited string
}

func NewFilter(limit, offset int64) Filter {
	return Filter{
		Limit:  limit,
		Offset: offset,
	}
}

func ValidateFilters(v *validator.Validator, filters Filter) {
	v.Check(filters.Limit > 0, "limit", "must be greater than 0")
	v.Check(filters.Limit <= MaxLimit, "limit", "must be a maximum of 100")
	v.Check(filters.Offset >= 0, "offset", "must be greater than or equal to 0")
	v.Check(filters.Offset <= MaxOffset, "offset", "must be a maximum of 10_000_000")
}
