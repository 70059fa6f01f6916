package orchestrator

import (
	"encoding/json"

	"github.com/54b3r/newsrag-go/internal/news"
)

// KeywordResult is the outcome of one keyword pipeline. Exactly one of
// Articles and Error is meaningful: a non-empty Error marks a failed
// pipeline.
type KeywordResult struct {
	Keyword  string
	Articles []news.SummaryItem
	Error    string
}

// Failed reports whether the pipeline failed.
func (r KeywordResult) Failed() bool { return r.Error != "" }

// MarshalJSON encodes r as {"keyword","articles"} or {"keyword","error"}.
func (r KeywordResult) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Keyword string `json:"keyword"`
			Error   string `json:"error"`
		}{r.Keyword, r.Error})
	}
	articles := r.Articles
	if articles == nil {
		articles = []news.SummaryItem{}
	}
	return json.Marshal(struct {
		Keyword  string             `json:"keyword"`
		Articles []news.SummaryItem `json:"articles"`
	}{r.Keyword, articles})
}
