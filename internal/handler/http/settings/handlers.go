// Package settings provides HTTP handlers for the email recipient endpoints.
// Recipients are split into a main audience and a debug audience; the digest
// dispatcher reads both lists.
package settings

import (
	"encoding/json"
	"net/http"
	"time"

	"rfp-radar/internal/handler/http/auth"
	"rfp-radar/internal/handler/http/respond"
	setUC "rfp-radar/internal/usecase/settings"
)

// DTO represents the JSON structure for the recipient configuration.
type DTO struct {
	MainRecipients  []string  `json:"main_recipients"`
	DebugRecipients []string  `json:"debug_recipients"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type GetHandler struct{ Svc *setUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Svc.Get(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, DTO{
		MainRecipients:  settings.MainRecipients,
		DebugRecipients: settings.DebugRecipients,
		UpdatedAt:       settings.UpdatedAt,
	})
}

type PutHandler struct{ Svc *setUC.Service }

// ServeHTTP 通知先設定
// @Summary      通知先設定
// @Description  メール通知先リストを置き換えます
// @Tags         email-settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        settings body object true "通知先リスト"
// @Success      200 {object} DTO "保存された通知先"
// @Failure      400 {string} string "Bad request - invalid email address"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Router       /email-settings [put]
func (h PutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MainRecipients  []string `json:"main_recipients"`
		DebugRecipients []string `json:"debug_recipients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	settings, err := h.Svc.Put(r.Context(), setUC.PutInput{
		MainRecipients:  req.MainRecipients,
		DebugRecipients: req.DebugRecipients,
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusOK, DTO{
		MainRecipients:  settings.MainRecipients,
		DebugRecipients: settings.DebugRecipients,
		UpdatedAt:       settings.UpdatedAt,
	})
}

// Register registers the email-settings HTTP handlers with the given mux.
func Register(mux *http.ServeMux, svc *setUC.Service) {
	mux.Handle("GET    /email-settings", auth.Authz(GetHandler{svc}))
	mux.Handle("PUT    /email-settings", auth.Authz(PutHandler{svc}))
}
