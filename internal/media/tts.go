package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/pkg/httpx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/utils"
)

// HTTPSynthesizer calls the TTS provider and writes the returned audio
// to a temp file.
type HTTPSynthesizer struct {
	log     *logger.Logger
	baseURL string
	apiKey  string
	destDir string
	hc      *http.Client
}

func NewHTTPSynthesizer(log *logger.Logger, destDir string) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		log:     log.With("service", "HTTPSynthesizer"),
		baseURL: utils.GetEnv("TTS_URL", "http://localhost:8091", log),
		apiKey:  utils.GetEnv("TTS_API_KEY", "", log),
		destDir: destDir,
		hc:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voice string) (*Handle, error) {
	if voice == "" {
		voice = "default"
	}
	body, err := json.Marshal(map[string]string{"text": text, "voice": voice})
	if err != nil {
		return nil, &StageError{Op: "tts", Retryable: false, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/speech", bytes.NewReader(body))
	if err != nil {
		return nil, &StageError{Op: "tts", Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &StageError{Op: "tts", Retryable: httpx.IsRetryableError(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		err := fmt.Errorf("tts returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		return nil, &StageError{Op: "tts", Retryable: httpx.IsRetryableHTTPStatus(resp.StatusCode), Err: err}
	}

	if err := os.MkdirAll(s.destDir, 0o755); err != nil {
		return nil, &StageError{Op: "tts", Retryable: false, Err: err}
	}
	out := filepath.Join(s.destDir, uuid.NewString()+".mp3")
	f, err := os.Create(out)
	if err != nil {
		return nil, &StageError{Op: "tts", Retryable: false, Err: err}
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return nil, &StageError{Op: "tts", Retryable: true, Err: err}
	}
	return &Handle{Path: out}, nil
}
