package state

import (
	"encoding/json"
	"strconv"
)

// Ellipsis is the placeholder rendered between non-adjacent page numbers
const Ellipsis = "..."

// PageToken is one entry of a pagination window: a page number or an ellipsis
type PageToken struct {
	Page     int
	Ellipsis bool
}

// PageNum returns a token for page n
func PageNum(n int) PageToken { return PageToken{Page: n} }

// Gap returns an ellipsis token
func Gap() PageToken { return PageToken{Ellipsis: true} }

func (t PageToken) String() string {
	if t.Ellipsis {
		return Ellipsis
	}
	return strconv.Itoa(t.Page)
}

// MarshalJSON renders page numbers as numbers and gaps as "..."
func (t PageToken) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal(Ellipsis)
	}
	return json.Marshal(t.Page)
}

// TotalPages is ceil(total/limit)
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// CurrentPage is floor(skip/limit)+1
func CurrentPage(skip, limit int) int {
	if limit <= 0 || skip < 0 {
		return 1
	}
	return skip/limit + 1
}

// DeriveWindow returns the abbreviated page sequence shown to the user
func DeriveWindow(currentPage, totalPages int) []PageToken {
	if totalPages <= 0 {
		return []PageToken{}
	}
	if totalPages <= 5 {
		pages := make([]PageToken, 0, totalPages)
		for i := 1; i <= totalPages; i++ {
			pages = append(pages, PageNum(i))
		}
		return pages
	}

	switch {
	case currentPage <= 3:
		return []PageToken{PageNum(1), PageNum(2), PageNum(3), PageNum(4), Gap(), PageNum(totalPages)}
	case currentPage >= totalPages-2:
		return []PageToken{
			PageNum(1), Gap(),
			PageNum(totalPages - 3), PageNum(totalPages - 2), PageNum(totalPages - 1), PageNum(totalPages),
		}
	default:
		return []PageToken{
			PageNum(1), Gap(),
			PageNum(currentPage - 1), PageNum(currentPage), PageNum(currentPage + 1),
			Gap(), PageNum(totalPages),
		}
	}
}

// Pager is the pagination control state exposed to the UI
type Pager struct {
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	Window      []PageToken `json:"window"`
	HasPrev     bool        `json:"hasPrev"`
	HasNext     bool        `json:"hasNext"`
}

// NewPager derives the control from catalog counters. It returns nil when
// there is at most one page, in which case no control is shown.
func NewPager(total, limit, skip int) *Pager {
	totalPages := TotalPages(total, limit)
	if totalPages <= 1 {
		return nil
	}
	current := CurrentPage(skip, limit)
	return &Pager{
		CurrentPage: current,
		TotalPages:  totalPages,
		Window:      DeriveWindow(current, totalPages),
		HasPrev:     current > 1,
		HasNext:     current < totalPages,
	}
}

// Clamp limits page to [1, TotalPages]
func (p *Pager) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if page > p.TotalPages {
		return p.TotalPages
	}
	return page
}

// PageInRange reports whether page is a valid page number
func PageInRange(page, totalPages int) bool {
	return page >= 1 && page <= totalPages
}
