package model // import "streamlance.app/internal/model"

// Stats is a summary of the whole catalog.
type Stats struct {
	ActivePostings int64   `json:"active_gigs" db:"active_postings"`
	AvgBudget      float64 `json:"avg_budget" db:"avg_budget"`
	Users          int64   `json:"freelancers" db:"users"`
	Delivered      int64   `json:"delivered_gigs" db:"delivered"`
}

// CategoryCount is the number of postings of a category inside a window.
type CategoryCount struct {
	Category string `db:"category"`
	Count    int64  `db:"count"`
}

// TrendingCategory is growth of a category between two adjacent windows.
type TrendingCategory struct {
	Name     string  `json:"name"`
	Current  int64   `json:"current"`
	Previous int64   `json:"previous"`
	Change   float64 `json:"change"`
}
