package server

import (
	"net/http"

	"streamlance.app/internal/http/response/json"
	"streamlance.app/internal/report"
	"streamlance.app/internal/taxonomy"
)

type handler struct {
	report Reporter
	tax    *taxonomy.Taxonomy
}

type trendingCategory struct {
	Name     string `json:"name"`
	Change   string `json:"change"`
	Current  int64  `json:"current"`
	Previous int64  `json:"previous"`
}

func (self *handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := self.report.Stats(r.Context())
	if err != nil {
		json.ServerError(w, r, err)
		return
	}
	json.OK(w, r, stats)
}

func (self *handler) trending(w http.ResponseWriter, r *http.Request) {
	trending, err := self.report.Trending(r.Context())
	if err != nil {
		json.ServerError(w, r, err)
		return
	}

	body := make([]trendingCategory, len(trending))
	for i := range trending {
		t := &trending[i]
		body[i] = trendingCategory{
			Name:     t.Name,
			Change:   report.FormatChange(t.Change),
			Current:  t.Current,
			Previous: t.Previous,
		}
	}
	json.OK(w, r, body)
}

func (self *handler) categories(w http.ResponseWriter, r *http.Request) {
	json.OK(w, r, self.tax.Names())
}
