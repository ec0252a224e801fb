package services_test

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/clipforge/clipforge-backend/internal/media"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/repos/testutil"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/types"
)

type stubDownloader struct{}

func (stubDownloader) Download(ctx context.Context, sourceRef, destDir string) (*media.Handle, error) {
	return &media.Handle{Path: filepath.Join(destDir, "src.mp4"), Width: 1920, Height: 1080, Duration: 90}, nil
}

type stubAnalyzer struct{ styles []string }

func (a *stubAnalyzer) Analyze(ctx context.Context, src *media.Handle, style string) (*media.Analysis, error) {
	a.styles = append(a.styles, style)
	return &media.Analysis{
		Score: 7.5,
		Segments: []types.Segment{
			{Start: 0, End: 10, Score: 9},
			{Start: 20, End: 50, Score: 8},
		},
	}, nil
}

type stubRenderer struct{}

func (stubRenderer) out(destDir, name string) *media.Handle {
	return &media.Handle{Path: filepath.Join(destDir, name)}
}

func (r stubRenderer) Trim(ctx context.Context, src *media.Handle, segments []types.Segment, destDir string) (*media.Handle, error) {
	return r.out(destDir, "trimmed.mp4"), nil
}

func (r stubRenderer) Compose(ctx context.Context, plan *types.CompositionPlan, sources []*media.Handle, destDir string) (*media.Handle, error) {
	return r.out(destDir, "composed.mp4"), nil
}

func (r stubRenderer) BurnSubtitles(ctx context.Context, src *media.Handle, transcript, destDir string) (*media.Handle, error) {
	return r.out(destDir, "subtitled.mp4"), nil
}

func (r stubRenderer) RemoveWatermark(ctx context.Context, src *media.Handle, destDir string) (*media.Handle, error) {
	return r.out(destDir, "clean.mp4"), nil
}

func (r stubRenderer) MuxAudio(ctx context.Context, video, audio *media.Handle, destDir string) (*media.Handle, error) {
	return r.out(destDir, "final.mp4"), nil
}

func newHighlightService(t *testing.T) (services.HighlightService, *stubAnalyzer) {
	t.Helper()
	analyzer := &stubAnalyzer{}
	svc := services.NewHighlightService(testutil.Logger(t), stubDownloader{}, analyzer, stubRenderer{}, t.TempDir(), t.TempDir())
	return svc, analyzer
}

func TestExtractHighlightsPassesStyleToAnalyzer(t *testing.T) {
	svc, analyzer := newHighlightService(t)
	result, err := svc.Extract(context.Background(), services.ExtractHighlightsRequest{
		SourceRef:      "https://www.youtube.com/watch?v=abc",
		TargetDuration: 30,
		Style:          "dramatic",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(analyzer.styles) != 1 || analyzer.styles[0] != "dramatic" {
		t.Fatalf("analyzer styles = %v, want [dramatic]", analyzer.styles)
	}
	if len(result.Segments) == 0 || result.OutputRef == "" {
		t.Fatalf("incomplete result: %+v", result)
	}
}

func TestExtractHighlightsDefaultsStyle(t *testing.T) {
	svc, analyzer := newHighlightService(t)
	if _, err := svc.Extract(context.Background(), services.ExtractHighlightsRequest{
		SourceRef:      "https://www.youtube.com/watch?v=abc",
		TargetDuration: 30,
	}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(analyzer.styles) != 1 || analyzer.styles[0] != "engaging" {
		t.Fatalf("analyzer styles = %v, want [engaging]", analyzer.styles)
	}
}

func TestExtractHighlightsRejectsMissingInputs(t *testing.T) {
	svc, _ := newHighlightService(t)
	if _, err := svc.Extract(context.Background(), services.ExtractHighlightsRequest{TargetDuration: 30}); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions for missing source", err)
	}
	if _, err := svc.Extract(context.Background(), services.ExtractHighlightsRequest{SourceRef: "x"}); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions for missing duration", err)
	}
}
