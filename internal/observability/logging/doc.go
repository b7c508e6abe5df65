// Package logging wraps log/slog with the helpers the radar processes share:
// JSON output for the server and worker, text output for the one-shot CLI,
// request-ID propagation, and carrying a logger through a context.
//
// A scan that fans out across fetcher, extractor and analyzer keeps one
// request_id in every line, so a single pipeline run can be grepped out of
// the combined log stream.
//
//	logger := logging.NewLogger()
//	logger.Info("scan started", slog.String("website", site.URL))
//
//	func handleRequest(ctx context.Context) {
//	    logger := logging.WithRequestID(ctx, slog.Default())
//	    logger.Info("processing request")
//	}
package logging
