package rfp

import (
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/pathutil"
	"rfp-radar/internal/handler/http/respond"
	rfpUC "rfp-radar/internal/usecase/rfp"
)

type DeleteHandler struct{ Svc *rfpUC.Service }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hash, err := pathutil.ExtractHash(r.URL.Path, "/rfps/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), hash); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, rfpUC.ErrInvalidHash) {
			code = http.StatusBadRequest
		} else if errors.Is(err, rfpUC.ErrRfpNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type DeleteAllHandler struct{ Svc *rfpUC.Service }

// ServeHTTP 案件全削除
// @Summary      案件全削除
// @Description  処理済みの案件をすべて削除します
// @Tags         rfps
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]int64 "削除件数"
// @Failure      401 {string} string "Authentication required - missing or invalid JWT token"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /rfps [delete]
func (h DeleteAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.DeleteAll(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
