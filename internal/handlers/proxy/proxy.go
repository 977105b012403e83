package proxy

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"hiring_edge/internal/config"
)

// Handler forwards allowed and rewritten requests to the application
// backend. The routing middleware has already settled the final path, so
// the proxy only carries bytes and forwarding headers.
type Handler struct {
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// New builds the reverse proxy for the backend base URL.
func New(backend config.BackendConfig, logger *slog.Logger, onError func(endpoint string)) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := url.Parse(backend.BaseURL)
	if err != nil {
		return nil, err
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// The tenant hostname is the routing signal upstream, keep it.
			pr.Out.Host = target.Host
			pr.Out.Header.Set("X-Forwarded-Host", pr.In.Host)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("backend proxy failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			if onError != nil {
				onError("proxy")
			}
			config.RespondBadGateway(w, "Upstream unavailable")
		},
	}

	return &Handler{proxy: rp, logger: logger}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}
