package website

import (
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/pathutil"
	"rfp-radar/internal/handler/http/respond"
	webUC "rfp-radar/internal/usecase/website"
)

type DeleteHandler struct{ Svc *webUC.Service }

func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/website-settings/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, webUC.ErrWebsiteNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
