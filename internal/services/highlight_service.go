package services

import (
	"context"
	"fmt"

	"github.com/clipforge/clipforge-backend/internal/media"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/selector"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// ExtractHighlightsRequest drives the synchronous highlight endpoint.
type ExtractHighlightsRequest struct {
	SourceRef      string
	TargetDuration float64
	NumHighlights  int
	Style          string
}

// ExtractHighlightsResult carries the chosen segments and the rendered
// clip they were cut into.
type ExtractHighlightsResult struct {
	Segments  []types.Segment `json:"segments"`
	OutputRef string          `json:"output_ref"`
}

// HighlightService runs the download-analyze-select-trim pipeline in
// one synchronous call, for callers that want highlights without a job.
type HighlightService interface {
	Extract(ctx context.Context, req ExtractHighlightsRequest) (*ExtractHighlightsResult, error)
}

type highlightService struct {
	log        *logger.Logger
	downloader media.Downloader
	analyzer   media.Analyzer
	renderer   media.Renderer
	tempDir    string
	outDir     string
}

func NewHighlightService(log *logger.Logger, downloader media.Downloader, analyzer media.Analyzer, renderer media.Renderer, tempDir, outDir string) HighlightService {
	return &highlightService{
		log:        log.With("service", "HighlightService"),
		downloader: downloader,
		analyzer:   analyzer,
		renderer:   renderer,
		tempDir:    tempDir,
		outDir:     outDir,
	}
}

func (s *highlightService) Extract(ctx context.Context, req ExtractHighlightsRequest) (*ExtractHighlightsResult, error) {
	if req.SourceRef == "" {
		return nil, fmt.Errorf("%w: source_ref is required", apperrors.ErrInvalidOptions)
	}
	if req.TargetDuration <= 0 {
		return nil, fmt.Errorf("%w: target duration must be positive", apperrors.ErrInvalidOptions)
	}
	count := req.NumHighlights
	if count <= 0 {
		count = 5
	}

	style := req.Style
	if style == "" {
		style = "engaging"
	}

	src, err := s.downloader.Download(ctx, req.SourceRef, s.tempDir)
	if err != nil {
		return nil, err
	}
	analysis, err := s.analyzer.Analyze(ctx, src, style)
	if err != nil {
		return nil, err
	}

	chosen := selector.Select(analysis.Segments, selector.Params{
		TargetDuration: req.TargetDuration,
		MaxCount:       count,
		SourceDuration: src.Duration,
	})
	s.log.Info("highlights selected", "candidates", len(analysis.Segments), "chosen", len(chosen))

	out, err := s.renderer.Trim(ctx, src, chosen, s.outDir)
	if err != nil {
		return nil, err
	}
	return &ExtractHighlightsResult{Segments: chosen, OutputRef: out.Path}, nil
}
