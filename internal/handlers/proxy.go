package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NomanAhmed1999/vatika/internal/platform/httpx"
	"github.com/NomanAhmed1999/vatika/internal/platform/requestctx"

	"go.uber.org/zap"
)

// ImageProxyHandlers re-serves allow-listed remote images under the API
// origin so the browser can rasterise them onto a canvas without tainting it.
type ImageProxyHandlers struct {
	client       *http.Client
	allowedHosts map[string]struct{}
	maxBytes     int64
}

// NewImageProxyHandlers constructs the proxy bounded to the given hosts and response size.
func NewImageProxyHandlers(allowedHosts []string, timeout time.Duration, maxBytes int64) *ImageProxyHandlers {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 15 << 20
	}
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, host := range allowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			hosts[host] = struct{}{}
		}
	}
	return &ImageProxyHandlers{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// Redirects could hop to a host outside the allowlist.
				return http.ErrUseLastResponse
			},
		},
		allowedHosts: hosts,
		maxBytes:     maxBytes,
	}
}

// Routes wires the image proxy endpoint onto the provided router.
func (h *ImageProxyHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/image-proxy", h.proxyImage)
}

func (h *ImageProxyHandlers) proxyImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "url query parameter is required", http.StatusBadRequest))
		return
	}
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme != "https" || target.Host == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "url must be an absolute https URL", http.StatusBadRequest))
		return
	}
	if !h.hostAllowed(target.Hostname()) {
		httpx.WriteError(ctx, w, httpx.NewError("host_not_allowed", "image host is not allow-listed", http.StatusForbidden))
		return
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to build upstream request", http.StatusBadRequest))
		return
	}
	upstreamReq.Header.Set("Accept", "image/*")

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		if errors.Is(err, io.EOF) {
			httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "image host closed the connection", http.StatusBadGateway))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "image host is unreachable", http.StatusBadGateway))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", "image host returned an error", http.StatusBadGateway))
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_content", "upstream response is not an image", http.StatusBadGateway))
		return
	}
	if resp.ContentLength > h.maxBytes {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "image exceeds allowed proxy size", http.StatusBadGateway))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	written, err := io.Copy(w, io.LimitReader(resp.Body, h.maxBytes))
	if err != nil {
		requestctx.Logger(ctx).Warn("image proxy stream interrupted",
			zap.Int64("bytes_written", written),
			zap.Error(err),
		)
	}
}

func (h *ImageProxyHandlers) hostAllowed(hostname string) bool {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return false
	}
	if _, ok := h.allowedHosts[hostname]; ok {
		return true
	}
	// Allow subdomains of an allow-listed apex.
	for allowed := range h.allowedHosts {
		if strings.HasSuffix(hostname, "."+allowed) {
			return true
		}
	}
	return false
}
