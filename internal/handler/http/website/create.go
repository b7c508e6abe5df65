package website

import (
	"encoding/json"
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/respond"
	webUC "rfp-radar/internal/usecase/website"
)

type CreateHandler struct{ Svc *webUC.Service }

// ServeHTTP 監視サイト登録
// @Summary      監視サイト登録
// @Description  クロール対象の一覧ページを登録します
// @Tags         website-settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        website body object true "登録するサイト情報"
// @Success      201 {object} DTO "登録されたサイト"
// @Failure      400 {string} string "Bad request - invalid input"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Router       /website-settings [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		URL  string `json:"url"`
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.URL == "" {
		respond.SafeError(w, http.StatusBadRequest,
			errors.New("name and url required"))
		return
	}
	site, err := h.Svc.Create(r.Context(), webUC.CreateInput{
		Name: req.Name, URL: req.URL, Kind: req.Kind,
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusCreated, DTO{
		ID: site.ID, Name: site.Name, URL: site.URL,
		Kind:      site.Kind,
		Enabled:   site.Enabled,
		CreatedAt: site.CreatedAt,
	})
}
