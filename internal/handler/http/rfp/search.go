package rfp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"rfp-radar/internal/handler/http/respond"
	aiUC "rfp-radar/internal/usecase/ai"
)

type SearchHandler struct{ AI *aiUC.Service }

// SearchHitDTO represents one semantic search result.
type SearchHitDTO struct {
	Hash        string    `json:"hash"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Site        string    `json:"site"`
	Summary     string    `json:"summary"`
	Similarity  float64   `json:"similarity"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ServeHTTP 案件セマンティック検索
// @Summary      案件セマンティック検索
// @Description  保存済みの要約に対してベクトル類似検索を行います
// @Tags         rfps
// @Security     BearerAuth
// @Produce      json
// @Param        q query string true "検索クエリ"
// @Param        limit query int false "最大件数" default(10) maximum(50)
// @Success      200 {array} SearchHitDTO "検索結果" headers(X-RateLimit-Limit=integer,X-RateLimit-Remaining=integer,X-RateLimit-Reset=integer)
// @Failure      400 {string} string "Bad request"
// @Failure      401 {string} string "Authentication required"
// @Failure      429 {string} string "Too many requests - rate limit exceeded" headers(X-RateLimit-Limit=integer,X-RateLimit-Remaining=integer,X-RateLimit-Reset=integer,Retry-After=integer)
// @Failure      503 {string} string "Semantic search disabled"
// @Router       /rfps/search [get]
func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respond.SafeError(w, http.StatusBadRequest,
			errors.New("q query param required"))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid limit: must be a positive integer"))
			return
		}
		limit = n
	}

	hits, err := h.AI.Search(r.Context(), query, limit)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, aiUC.ErrSemanticDisabled) {
			code = http.StatusServiceUnavailable
		} else if errors.Is(err, aiUC.ErrInvalidQuery) {
			code = http.StatusBadRequest
		}
		respond.SafeError(w, code, err)
		return
	}

	out := make([]SearchHitDTO, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SearchHitDTO{
			Hash:        hit.Hash,
			Title:       hit.Title,
			URL:         hit.URL,
			Site:        hit.Site,
			Summary:     hit.Summary,
			Similarity:  hit.Similarity,
			ProcessedAt: hit.ProcessedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}
