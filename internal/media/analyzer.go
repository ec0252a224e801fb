package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipforge/clipforge-backend/internal/pkg/httpx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/utils"
)

// HTTPAnalyzer calls the external analysis service, which inspects a
// downloaded source and returns a summary, a quality score and the
// candidate highlight segments.
type HTTPAnalyzer struct {
	log     *logger.Logger
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewHTTPAnalyzer(log *logger.Logger) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		log:     log.With("service", "HTTPAnalyzer"),
		baseURL: utils.GetEnv("ANALYZER_URL", "http://localhost:8090", log),
		apiKey:  utils.GetEnv("ANALYZER_API_KEY", "", log),
		hc:      &http.Client{Timeout: 120 * time.Second},
	}
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, src *Handle, style string) (*Analysis, error) {
	body, err := json.Marshal(map[string]any{
		"path":     src.Path,
		"duration": src.Duration,
		"style":    style,
	})
	if err != nil {
		return nil, &StageError{Op: "analyze", Retryable: false, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, &StageError{Op: "analyze", Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &StageError{Op: "analyze", Retryable: httpx.IsRetryableError(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		err := fmt.Errorf("analyzer returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		return nil, &StageError{Op: "analyze", Retryable: httpx.IsRetryableHTTPStatus(resp.StatusCode), Err: err}
	}

	var out Analysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &StageError{Op: "analyze", Retryable: true, Err: err}
	}
	return &out, nil
}
