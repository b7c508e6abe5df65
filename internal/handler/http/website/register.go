package website

import (
	"net/http"

	"rfp-radar/internal/handler/http/auth"
	webUC "rfp-radar/internal/usecase/website"
)

// Register registers all website-settings HTTP handlers with the given mux.
// Every route requires authentication: the crawl set controls what the
// pipeline fetches, so it is admin-only end to end.
func Register(mux *http.ServeMux, svc *webUC.Service) {
	mux.Handle("GET    /website-settings", auth.Authz(ListHandler{svc}))
	mux.Handle("GET    /website-settings/", auth.Authz(GetHandler{svc}))

	mux.Handle("POST   /website-settings", auth.Authz(CreateHandler{svc}))
	mux.Handle("PUT    /website-settings/", auth.Authz(UpdateHandler{svc}))
	mux.Handle("DELETE /website-settings/", auth.Authz(DeleteHandler{svc}))
}
