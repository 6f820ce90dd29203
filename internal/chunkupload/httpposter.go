package chunkupload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// HTTPPoster is the production Poster, built directly over net/http. It
// deliberately has no retry loop — unlike the teacher's graph.Client.Do,
// which retries transparently, spec §7 requires every core I/O call to fail
// fast and let the control plane decide what happens next.
type HTTPPoster struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPPoster creates an HTTPPoster. A nil client uses http.DefaultClient;
// a nil logger uses slog.Default().
func NewHTTPPoster(client *http.Client, logger *slog.Logger) *HTTPPoster {
	if client == nil {
		client = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPPoster{client: client, logger: logger}
}

func (p *HTTPPoster) Post(ctx context.Context, req PostRequest) (*PostResponse, error) {
	body := req.Body
	if body != nil {
		body = newProgressReader(body, req.Progress)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("chunkupload: building request for %s: %w", req.URL, err)
	}

	if req.ContentLen >= 0 {
		httpReq.ContentLength = req.ContentLen
	}

	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	p.logger.Debug("posting",
		slog.String("url", req.URL),
		slog.String("content_type", req.ContentType),
	)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Debug("post failed",
			slog.String("url", req.URL),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("chunkupload: posting to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return nil, fmt.Errorf("chunkupload: %s returned HTTP %d: %s", req.URL, resp.StatusCode, string(errBody))
	}

	if resp.ContentLength == 0 {
		return &PostResponse{}, nil
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if err == io.EOF { //nolint:errorlint // sentinel comparison is correct for io.EOF
			return &PostResponse{}, nil
		}

		return nil, fmt.Errorf("chunkupload: decoding response from %s: %w", req.URL, err)
	}

	return &PostResponse{Decoded: decoded}, nil
}
