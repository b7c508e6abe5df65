package website

import (
	"encoding/json"
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/pathutil"
	"rfp-radar/internal/handler/http/respond"
	webUC "rfp-radar/internal/usecase/website"
)

type UpdateHandler struct{ Svc *webUC.Service }

// ServeHTTP 監視サイト更新
// @Summary      監視サイト更新
// @Description  既存の監視サイトを更新します
// @Tags         website-settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "サイトID"
// @Param        website body object true "更新するサイト情報"
// @Success      200 {object} DTO "更新後のサイト"
// @Failure      400 {string} string "Bad request - invalid input"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      404 {string} string "Not found - website not found"
// @Router       /website-settings/{id} [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/website-settings/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Name    string `json:"name"`
		URL     string `json:"url"`
		Kind    string `json:"kind"`
		Enabled *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	site, err := h.Svc.Update(r.Context(), webUC.UpdateInput{
		ID: id, Name: req.Name, URL: req.URL, Kind: req.Kind,
		Enabled: req.Enabled,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, webUC.ErrWebsiteNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, DTO{
		ID: site.ID, Name: site.Name, URL: site.URL,
		Kind:      site.Kind,
		Enabled:   site.Enabled,
		CreatedAt: site.CreatedAt,
	})
}
