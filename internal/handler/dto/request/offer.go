package request

import (
	"strings"

	"offer-relay/internal/usecase/queries"
)

const defaultListLimit = 100

type ListOffersRequest struct {
	State string `form:"state" binding:"omitempty,oneof=open accepted declined countered unavailable"`
	SKU   string `form:"sku" binding:"omitempty,max=128"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func (r ListOffersRequest) ToFilter() queries.ListFilter {
	limit := r.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	return queries.ListFilter{
		State: r.State,
		SKU:   strings.TrimSpace(r.SKU),
		Limit: limit,
	}
}
