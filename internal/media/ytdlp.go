package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/utils"
)

// YtdlpDownloader shells out to yt-dlp for platform URLs and copies
// plain file references as-is.
type YtdlpDownloader struct {
	log *logger.Logger
	bin string
}

func NewYtdlpDownloader(log *logger.Logger) *YtdlpDownloader {
	return &YtdlpDownloader{
		log: log.With("service", "YtdlpDownloader"),
		bin: utils.GetEnv("YTDLP_BIN", "yt-dlp", log),
	}
}

func (d *YtdlpDownloader) Download(ctx context.Context, sourceRef, destDir string) (*Handle, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &StageError{Op: "download", Retryable: false, Err: err}
	}

	// Local files skip the network entirely.
	if !strings.Contains(sourceRef, "://") {
		if _, err := os.Stat(sourceRef); err != nil {
			return nil, &StageError{Op: "download", Retryable: false, Err: fmt.Errorf("source %q: %w", sourceRef, err)}
		}
		return &Handle{Path: sourceRef}, nil
	}

	out := filepath.Join(destDir, uuid.NewString()+".mp4")
	args := []string{
		"--no-playlist",
		"--merge-output-format", "mp4",
		"--print-json",
		"-o", out,
		sourceRef,
	}
	d.log.Info("downloading source", "platform", DetectPlatform(sourceRef), "dest", out)

	cmd := exec.CommandContext(ctx, d.bin, args...)
	stdout, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &StageError{Op: "download", Retryable: true, Err: commandError(err)}
	}

	h := &Handle{Path: out}
	var meta struct {
		Width    int     `json:"width"`
		Height   int     `json:"height"`
		Duration float64 `json:"duration"`
	}
	if jsonErr := json.Unmarshal(firstLine(stdout), &meta); jsonErr == nil {
		h.Width, h.Height, h.Duration = meta.Width, meta.Height, meta.Duration
	}
	return h, nil
}

// firstLine isolates the metadata line; yt-dlp can emit progress noise
// after it on some versions.
func firstLine(b []byte) []byte {
	if i := strings.IndexByte(string(b), '\n'); i > 0 {
		return b[:i]
	}
	return b
}

func commandError(err error) error {
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(ee.Stderr)))
	}
	return err
}
