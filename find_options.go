package tenantd

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/percussion/tenantd/kit/platform/errors"
)

// Paging limits for list calls.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// FindOptions represents options passed to all find methods with multiple results.
type FindOptions struct {
	Limit      int
	Offset     int
	SortBy     string
	Descending bool
}

// DecodeFindOptions returns a FindOptions decoded from http request.
func DecodeFindOptions(r *http.Request) (*FindOptions, error) {
	opts := &FindOptions{}
	qp := r.URL.Query()

	if offset := qp.Get("offset"); offset != "" {
		o, err := strconv.Atoi(offset)
		if err != nil || o < 0 {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "offset must be a non-negative integer",
			}
		}
		opts.Offset = o
	}

	if limit := qp.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "limit must be an integer",
			}
		}
		if l < 1 || l > MaxPageSize {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  fmt.Sprintf("limit must be between 1 and %d", MaxPageSize),
			}
		}
		opts.Limit = l
	} else {
		opts.Limit = DefaultPageSize
	}

	if sortBy := qp.Get("sortBy"); sortBy != "" {
		opts.SortBy = sortBy
	}

	if descending := qp.Get("descending"); descending != "" {
		desc, err := strconv.ParseBool(descending)
		if err != nil {
			return nil, &errors.Error{
				Code: errors.EInvalid,
				Msg:  "descending must be a boolean",
			}
		}
		opts.Descending = desc
	}

	return opts, nil
}

// Page returns the window of a sorted slice selected by the options.
func (f FindOptions) Page(n int) (start, end int) {
	start = f.Offset
	if start > n {
		start = n
	}
	end = n
	if f.Limit > 0 && start+f.Limit < n {
		end = start + f.Limit
	}
	return start, end
}
