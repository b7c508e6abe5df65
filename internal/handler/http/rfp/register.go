package rfp

import (
	"log/slog"
	"net/http"
	"time"

	"rfp-radar/internal/common/pagination"
	hhttp "rfp-radar/internal/handler/http"
	"rfp-radar/internal/handler/http/auth"
	"rfp-radar/internal/handler/http/middleware"
	aiUC "rfp-radar/internal/usecase/ai"
	rfpUC "rfp-radar/internal/usecase/rfp"
)

// llmRequestTimeout bounds the search and Q&A endpoints, which block on
// embedding and chat-completion calls. Other routes only touch the database
// and stay untimed.
const llmRequestTimeout = 60 * time.Second

// Register registers all rfp-related HTTP handlers with the given mux.
// Every route requires authentication; the semantic search endpoint is
// additionally rate limited because each request costs an embedding call.
func Register(mux *http.ServeMux, svc *rfpUC.Service, aiSvc *aiUC.Service, paginationCfg pagination.Config, logger *slog.Logger, searchRateLimiter *middleware.RateLimiter) {
	llmTimeout := hhttp.Timeout(llmRequestTimeout)

	mux.Handle("GET    /rfps", auth.Authz(ListHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
		Logger:        logger,
	}))
	mux.Handle("GET    /rfps/search", auth.Authz(searchRateLimiter.Middleware(llmTimeout(SearchHandler{aiSvc}))))
	mux.Handle("POST   /rfps/ask", auth.Authz(searchRateLimiter.Middleware(llmTimeout(AskHandler{aiSvc}))))
	mux.Handle("GET    /rfps/", auth.Authz(GetHandler{svc}))

	mux.Handle("DELETE /rfps", auth.Authz(DeleteAllHandler{svc}))
	mux.Handle("DELETE /rfps/", auth.Authz(DeleteHandler{svc}))
}
