// Package scrape provides the imperative run endpoint. POST /scrape drives
// the same discovery pipeline as the scheduled worker tick and returns the
// newly stored opportunities.
package scrape

import (
	"errors"
	"net/http"
	"strconv"

	"rfp-radar/internal/handler/http/auth"
	"rfp-radar/internal/handler/http/respond"
	scrapeUC "rfp-radar/internal/usecase/scrape"
)

// NewRfpDTO is one newly stored opportunity in the run response.
type NewRfpDTO struct {
	Hash    string `json:"hash"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Site    string `json:"site"`
	Summary string `json:"summary"`
}

// RunResponseDTO summarizes a finished run for the caller.
type RunResponseDTO struct {
	NewCount      int         `json:"new_count"`
	NewRfps       []NewRfpDTO `json:"new_rfps"`
	Sites         int         `json:"sites"`
	SitesFailed   int         `json:"sites_failed"`
	ItemsProposed int         `json:"items_proposed"`
	Excluded      int         `json:"excluded"`
	Failed        int         `json:"failed"`
	DurationMS    int64       `json:"duration_ms"`
}

type RunHandler struct{ Svc *scrapeUC.Service }

// ServeHTTP 即時実行
// @Summary      即時実行
// @Description  発見パイプラインを即時実行します。スケジュール実行と同じ経路を通ります。
// @Tags         scrape
// @Security     BearerAuth
// @Produce      json
// @Param        send_main  query bool false "メイン通知先へダイジェストを送信"
// @Param        send_debug query bool false "デバッグ通知先へランログ付きダイジェストを送信"
// @Param        site_id    query int  false "対象サイトを1件に限定"
// @Success      200 {object} RunResponseDTO "実行結果"
// @Failure      400 {string} string "Bad request"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      500 {string} string "実行失敗"
// @Router       /scrape [post]
func (h RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := scrapeUC.Options{
		SendMain:  queryFlag(q.Get("send_main"), q.Has("send_main")),
		SendDebug: queryFlag(q.Get("send_debug"), q.Has("send_debug")),
	}

	if siteIDStr := q.Get("site_id"); siteIDStr != "" {
		siteID, err := strconv.ParseInt(siteIDStr, 10, 64)
		if err != nil || siteID <= 0 {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid site_id: must be a positive integer"))
			return
		}
		opts.SiteID = siteID
	}

	stats, err := h.Svc.Run(r.Context(), opts)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := RunResponseDTO{
		NewCount:      stats.NewCount,
		NewRfps:       make([]NewRfpDTO, 0, len(stats.NewRfps)),
		Sites:         stats.Sites,
		SitesFailed:   stats.SitesFailed,
		ItemsProposed: stats.ItemsProposed,
		Excluded:      stats.Excluded,
		Failed:        stats.Failed,
		DurationMS:    stats.Duration.Milliseconds(),
	}
	for _, rfp := range stats.NewRfps {
		out.NewRfps = append(out.NewRfps, NewRfpDTO{
			Hash:    rfp.Hash,
			Title:   rfp.Title,
			URL:     rfp.URL,
			Site:    rfp.Site,
			Summary: rfp.Summary,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

// queryFlag interprets a presence-style query parameter: `?send_main` and
// `?send_main=true` both enable, `?send_main=false` disables.
func queryFlag(value string, present bool) bool {
	if !present {
		return false
	}
	if value == "" {
		return true
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return enabled
}

// Register registers the scrape HTTP handler with the given mux.
func Register(mux *http.ServeMux, svc *scrapeUC.Service) {
	mux.Handle("POST   /scrape", auth.Authz(RunHandler{svc}))
}
