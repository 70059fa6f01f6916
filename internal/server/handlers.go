package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/54b3r/newsrag-go/internal/logging"
	"github.com/54b3r/newsrag-go/internal/news"
	"github.com/54b3r/newsrag-go/internal/orchestrator"
)

// Query parameter limits.
const (
	minQueryRunes = 2
	maxStaticK    = 20
	maxCollect    = 1000
)

// Error details returned to clients.
const (
	detailSummaryFailed = "요약 처리 중 오류 발생"
	detailCollectFailed = "뉴스 수집 또는 저장 중 오류 발생"
	detailSearchFailed  = "유사 뉴스 검색 또는 요약 중 오류 발생"
	detailChatFailed    = "뉴스 전문가 답변 생성 중 오류 발생"
	detailStaticFailed  = "정적 코퍼스 요약 중 오류 발생"
)

// handleKeywordSummary handles GET /keyword-summary?keywords=a&keywords=b.
func (s *Server) handleKeywordSummary(w http.ResponseWriter, r *http.Request) {
	var keywords []string
	for _, k := range r.URL.Query()["keywords"] {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		writeError(w, http.StatusBadRequest, "keywords 파라미터가 필요합니다.")
		return
	}

	results := s.svc.BatchKeywordSummary(r.Context(), keywords)
	if len(results) != len(keywords) {
		logging.FromContext(r.Context()).Error("keyword summary: result count mismatch",
			slog.Int("keywords", len(keywords)),
			slog.Int("results", len(results)),
		)
		writeError(w, http.StatusInternalServerError, detailSummaryFailed)
		return
	}
	for _, res := range results {
		s.metrics.observeKeyword(res)
	}
	writeJSON(w, http.StatusOK, keywordSummaryResponse{Results: results})
}

// handleCollect handles GET /collect-and-store?total=100.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	total, err := intParam(r, "total", 100)
	if err != nil || total < 1 || total > maxCollect {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("total은 1 이상 %d 이하의 정수여야 합니다.", maxCollect))
		return
	}

	stats, err := s.svc.Collect(r.Context(), s.cfg.CollectKeywords, total, func(msg string) {
		log.Debug(msg)
	})
	if err != nil {
		log.Error("collect failed", slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrCollectUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, detailCollectFailed)
		return
	}

	s.metrics.articlesStored.Add(float64(stats.Stored))
	writeJSON(w, http.StatusOK, collectResponse{
		StoredCount: stats.Stored,
		Message:     fmt.Sprintf("%d개의 기사를 저장했습니다.", stats.Stored),
	})
}

// handleSearch handles GET /search?query=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := queryParam(w, r)
	if !ok {
		return
	}

	items, err := s.svc.Search(r.Context(), query)
	if err != nil {
		logging.FromContext(r.Context()).Error("search failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, detailSearchFailed)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: nonNil(items)})
}

// handleChat handles GET /chat?query=&journal=.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	query, ok := queryParam(w, r)
	if !ok {
		return
	}
	journal := strings.TrimSpace(r.URL.Query().Get("journal"))

	answer, refs, err := s.svc.ExpertReply(r.Context(), query, journal)
	if err != nil {
		logging.FromContext(r.Context()).Error("chat failed",
			slog.String("journal", journal),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, detailChatFailed)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Query: query, Answer: answer, References: nonNil(refs)})
}

// handleStaticSummary handles GET /static-summary?keyword=&journal=&k=.
func (s *Server) handleStaticSummary(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword 파라미터가 필요합니다.")
		return
	}
	k, err := intParam(r, "k", orchestrator.StaticTopK)
	if err != nil || k < 1 || k > maxStaticK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("k는 1 이상 %d 이하의 정수여야 합니다.", maxStaticK))
		return
	}
	journal := strings.TrimSpace(r.URL.Query().Get("journal"))

	items, err := s.svc.StaticKeywordSummary(r.Context(), keyword, k, journal)
	if err != nil {
		logging.FromContext(r.Context()).Error("static summary failed", slog.Any("error", err))
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrStaticUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, detailStaticFailed)
		return
	}
	writeJSON(w, http.StatusOK, staticSummaryResponse{Keyword: keyword, Articles: nonNil(items)})
}

// queryParam reads and validates the "query" parameter, writing a 400 when
// it is shorter than two characters.
func queryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if utf8.RuneCountInString(q) < minQueryRunes {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query는 %d자 이상이어야 합니다.", minQueryRunes))
		return "", false
	}
	return q, true
}

// intParam parses an optional integer parameter.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil(items []news.SummaryItem) []news.SummaryItem {
	if items == nil {
		return []news.SummaryItem{}
	}
	return items
}
