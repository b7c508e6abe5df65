package rfp

import (
	"errors"
	"net/http"
	"strings"

	"rfp-radar/internal/handler/http/pathutil"
	"rfp-radar/internal/handler/http/respond"
	rfpUC "rfp-radar/internal/usecase/rfp"
)

type GetHandler struct{ Svc *rfpUC.Service }

// ServeHTTP 案件詳細取得
// @Summary      案件詳細取得
// @Description  指定されたハッシュの案件を取得します（抽出済み本文を含む）
// @Tags         rfps
// @Security     BearerAuth
// @Produce      json
// @Param        hash path string true "案件ハッシュ (SHA-256 hex)"
// @Success      200 {object} DetailDTO "案件詳細"
// @Failure      400 {string} string "Bad request - invalid hash"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      404 {string} string "Not found - rfp not found"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /rfps/{hash} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// /rfps/{hash}/pdf is served by the same prefix route.
	if strings.HasSuffix(r.URL.Path, "/pdf") {
		h.servePDF(w, r)
		return
	}

	hash, err := pathutil.ExtractHash(r.URL.Path, "/rfps/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := h.Svc.Get(r.Context(), hash)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, rfpUC.ErrInvalidHash) {
			code = http.StatusBadRequest
		} else if errors.Is(err, rfpUC.ErrRfpNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}

	out := DetailDTO{
		DTO: DTO{
			Hash:        rec.Hash,
			Title:       rec.Title,
			URL:         rec.URL,
			Site:        rec.Site,
			AISummary:   rec.AISummary,
			ProcessedAt: rec.ProcessedAt,
			HasPDF:      len(rec.PDFContent) > 0,
		},
		DetailContent: rec.DetailContent,
	}

	respond.JSON(w, http.StatusOK, out)
}

// servePDF 案件PDF取得
// @Summary      案件PDF取得
// @Description  案件に保存されたPDFをそのまま返します
// @Tags         rfps
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        hash path string true "案件ハッシュ (SHA-256 hex)"
// @Success      200 {file} binary "PDF本体"
// @Failure      400 {string} string "Bad request - invalid hash"
// @Failure      404 {string} string "Not found - no pdf stored"
// @Router       /rfps/{hash}/pdf [get]
func (h GetHandler) servePDF(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/pdf")
	hash, err := pathutil.ExtractHash(path, "/rfps/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	pdf, err := h.Svc.GetPDF(r.Context(), hash)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, rfpUC.ErrInvalidHash) {
			code = http.StatusBadRequest
		} else if errors.Is(err, rfpUC.ErrPDFNotFound) || errors.Is(err, rfpUC.ErrRfpNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+hash+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
