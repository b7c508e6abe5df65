package website

import (
	"errors"
	"net/http"

	"rfp-radar/internal/handler/http/pathutil"
	"rfp-radar/internal/handler/http/respond"
	webUC "rfp-radar/internal/usecase/website"
)

type ListHandler struct{ Svc *webUC.Service }

func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, e := range list {
		out = append(out, DTO{
			ID: e.ID, Name: e.Name, URL: e.URL,
			Kind:      e.Kind,
			Enabled:   e.Enabled,
			CreatedAt: e.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, out)
}

type GetHandler struct{ Svc *webUC.Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/website-settings/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	site, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
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
