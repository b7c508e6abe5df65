package rfp

import (
	"encoding/json"
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/respond"
	aiUC "rfp-radar/internal/usecase/ai"
)

type AskHandler struct{ AI *aiUC.Service }

// AskResponseDTO is the grounded answer together with its source records.
type AskResponseDTO struct {
	Answer  string         `json:"answer"`
	Sources []SearchHitDTO `json:"sources"`
}

// ServeHTTP 案件Q&A
// @Summary      案件Q&A
// @Description  保存済み案件を根拠として質問に回答します
// @Tags         rfps
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        question body object true "質問"
// @Success      200 {object} AskResponseDTO "回答と根拠"
// @Failure      400 {string} string "Bad request"
// @Failure      401 {string} string "Authentication required"
// @Failure      503 {string} string "Semantic search disabled"
// @Router       /rfps/ask [post]
func (h AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question   string `json:"question"`
		MaxContext int    `json:"max_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		respond.SafeError(w, http.StatusBadRequest,
			errors.New("question required"))
		return
	}

	answer, err := h.AI.Ask(r.Context(), req.Question, req.MaxContext)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, aiUC.ErrSemanticDisabled) {
			code = http.StatusServiceUnavailable
		} else if errors.Is(err, aiUC.ErrInvalidQuestion) {
			code = http.StatusBadRequest
		}
		respond.SafeError(w, code, err)
		return
	}

	sources := make([]SearchHitDTO, 0, len(answer.Sources))
	for _, hit := range answer.Sources {
		sources = append(sources, SearchHitDTO{
			Hash:        hit.Hash,
			Title:       hit.Title,
			URL:         hit.URL,
			Site:        hit.Site,
			Summary:     hit.Summary,
			Similarity:  hit.Similarity,
			ProcessedAt: hit.ProcessedAt,
		})
	}
	respond.JSON(w, http.StatusOK, AskResponseDTO{
		Answer:  answer.Text,
		Sources: sources,
	})
}
