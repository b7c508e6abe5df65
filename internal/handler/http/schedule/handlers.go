// Package schedule provides HTTP handlers for the scrape schedule endpoints.
// The schedule is a singleton: GET reads it, PUT replaces it, DELETE removes
// it. The worker claims due runs from the same row.
package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"rfp-radar/internal/handler/http/auth"
	"rfp-radar/internal/handler/http/respond"
	schedUC "rfp-radar/internal/usecase/schedule"
)

// DTO represents the JSON structure for the scrape schedule.
type DTO struct {
	Enabled       bool       `json:"enabled" example:"true"`
	IntervalHours float64    `json:"interval_hours" example:"24"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
}

type GetHandler struct{ Svc *schedUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Svc.Get(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, schedUC.ErrScheduleNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, DTO{
		Enabled:       cfg.Enabled,
		IntervalHours: cfg.IntervalHours,
		NextRunAt:     cfg.NextRunAt,
		LastRunAt:     cfg.LastRunAt,
	})
}

type PutHandler struct{ Svc *schedUC.Service }

// ServeHTTP スケジュール設定
// @Summary      スケジュール設定
// @Description  実行スケジュールを置き換えます。次回実行時刻はスケジュールタイムゾーンで解釈されます。
// @Tags         schedule
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        schedule body object true "スケジュール設定"
// @Success      200 {object} DTO "保存されたスケジュール"
// @Failure      400 {string} string "Bad request - invalid input"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Router       /schedule [put]
func (h PutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled       bool    `json:"enabled"`
		IntervalHours float64 `json:"interval_hours"`
		NextRunHour   int     `json:"next_run_hour"`
		NextRunMinute int     `json:"next_run_minute"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := h.Svc.Put(r.Context(), schedUC.PutInput{
		Enabled:       req.Enabled,
		IntervalHours: req.IntervalHours,
		NextRunHour:   req.NextRunHour,
		NextRunMinute: req.NextRunMinute,
	})
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusOK, DTO{
		Enabled:       cfg.Enabled,
		IntervalHours: cfg.IntervalHours,
		NextRunAt:     cfg.NextRunAt,
		LastRunAt:     cfg.LastRunAt,
	})
}

type DeleteHandler struct{ Svc *schedUC.Service }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context()); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register registers the schedule HTTP handlers with the given mux.
func Register(mux *http.ServeMux, svc *schedUC.Service) {
	mux.Handle("GET    /schedule", auth.Authz(GetHandler{svc}))
	mux.Handle("PUT    /schedule", auth.Authz(PutHandler{svc}))
	mux.Handle("DELETE /schedule", auth.Authz(DeleteHandler{svc}))
}
