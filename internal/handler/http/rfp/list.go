package rfp

import (
	"log/slog"
	"net/http"
	"time"

	"rfp-radar/internal/common/pagination"
	"rfp-radar/internal/handler/http/requestid"
	"rfp-radar/internal/handler/http/respond"
	"rfp-radar/internal/observability/logging"
	rfpUC "rfp-radar/internal/usecase/rfp"
)

type ListHandler struct {
	Svc           *rfpUC.Service
	PaginationCfg pagination.Config
	Logger        *slog.Logger
}

// ServeHTTP 案件一覧取得
// @Summary      案件一覧取得（ページネーション対応）
// @Description  処理済みの案件を新しい順に取得します。ページネーションパラメータを指定して、ページ単位で取得できます。
// @Tags         rfps
// @Security     BearerAuth
// @Produce      json
// @Param        page   query    int  false  "ページ番号 (1-based)" default(1) minimum(1)
// @Param        limit  query    int  false  "1ページあたりの件数" default(20) minimum(1) maximum(100)
// @Success      200 {object} pagination.Response[DTO] "ページネーション付き案件一覧"
// @Failure      400 {string} string "Invalid query parameters"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /rfps [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		logger.Warn("Invalid pagination parameters",
			"error", err.Error(),
			"request_id", reqID)
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Svc.ListPaginated(ctx, params)
	if err != nil {
		logger.Error("Failed to list rfps",
			"error", err.Error(),
			"page", params.Page,
			"limit", params.Limit,
			"request_id", reqID)
		pagination.RecordError("database")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(result.Data))
	for _, item := range result.Data {
		dtos = append(dtos, DTO{
			Hash:        item.Hash,
			Title:       item.Title,
			URL:         item.URL,
			Site:        item.Site,
			AISummary:   item.AISummary,
			ProcessedAt: item.ProcessedAt,
			HasPDF:      len(item.PDFContent) > 0,
		})
	}

	response := pagination.NewResponse(dtos, result.Pagination)

	duration := time.Since(startTime)
	pagination.RecordRequest(http.StatusOK, params.Page)
	pagination.RecordDuration("handler", duration.Seconds())
	pagination.UpdateTotalCount(result.Pagination.Total)

	logger.Info("Paginated response",
		"page", params.Page,
		"limit", params.Limit,
		"returned_count", len(dtos),
		"duration_ms", duration.Milliseconds(),
		"status", http.StatusOK,
		"request_id", reqID)

	respond.JSON(w, http.StatusOK, response)
}
