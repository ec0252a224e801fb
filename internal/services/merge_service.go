package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge-backend/internal/composition"
	"github.com/clipforge/clipforge-backend/internal/media"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/types"
)

// MergeSplitScreenRequest composes two sources into one frame.
type MergeSplitScreenRequest struct {
	Source1     string
	Source2     string
	Layout      composition.Layout
	SplitRatio  string
	OutputRatio string
	Audio       types.AudioSource
	Background  string
}

// ConvertRequest reshapes one source for a target platform.
type ConvertRequest struct {
	SourceRef      string
	TargetPlatform string
	OutputRatio    string // overrides the platform default when set
	Method         types.FitMode
	Background     string
}

// MergeResult is the rendered output plus the geometry that produced it.
type MergeResult struct {
	OutputRef string                 `json:"output_ref"`
	Plan      *types.CompositionPlan `json:"plan"`
}

// MergeService runs the synchronous composition endpoints: split-screen
// merging and single-source aspect conversion.
type MergeService interface {
	MergeSplitScreen(ctx context.Context, req MergeSplitScreenRequest) (*MergeResult, error)
	ConvertForPlatform(ctx context.Context, req ConvertRequest) (*MergeResult, error)
}

type mergeService struct {
	log        *logger.Logger
	downloader media.Downloader
	renderer   media.Renderer
	tempDir    string
	outDir     string
}

func NewMergeService(log *logger.Logger, downloader media.Downloader, renderer media.Renderer, tempDir, outDir string) MergeService {
	return &mergeService{
		log:        log.With("service", "MergeService"),
		downloader: downloader,
		renderer:   renderer,
		tempDir:    tempDir,
		outDir:     outDir,
	}
}

func (s *mergeService) MergeSplitScreen(ctx context.Context, req MergeSplitScreenRequest) (*MergeResult, error) {
	if req.Source1 == "" || req.Source2 == "" {
		return nil, fmt.Errorf("%w: both sources are required", apperrors.ErrInvalidOptions)
	}

	// The two downloads are independent; fetch them concurrently.
	handles := make([]*media.Handle, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range []string{req.Source1, req.Source2} {
		g.Go(func() error {
			h, err := s.downloader.Download(gctx, ref, s.tempDir)
			if err != nil {
				return err
			}
			handles[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plan, err := composition.PlanSplitScreen(composition.SplitRequest{
		Sources: []composition.Source{
			sourceDims(handles[0]),
			sourceDims(handles[1]),
		},
		Layout:      req.Layout,
		SplitRatio:  req.SplitRatio,
		OutputRatio: req.OutputRatio,
		Audio:       req.Audio,
		Background:  req.Background,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.Compose(ctx, plan, handles, s.outDir)
	if err != nil {
		return nil, err
	}
	s.log.Info("split-screen rendered", "frame", fmt.Sprintf("%dx%d", plan.FrameWidth, plan.FrameHeight), "output", out.Path)
	return &MergeResult{OutputRef: out.Path, Plan: plan}, nil
}

func (s *mergeService) ConvertForPlatform(ctx context.Context, req ConvertRequest) (*MergeResult, error) {
	if req.SourceRef == "" {
		return nil, fmt.Errorf("%w: source_ref is required", apperrors.ErrInvalidOptions)
	}
	ratio := req.OutputRatio
	if ratio == "" {
		ratio = media.DefaultRatioFor(req.TargetPlatform)
	}

	src, err := s.downloader.Download(ctx, req.SourceRef, s.tempDir)
	if err != nil {
		return nil, err
	}
	plan, err := composition.PlanAspectConversion(composition.ConvertRequest{
		Source:      sourceDims(src),
		OutputRatio: ratio,
		Method:      req.Method,
		Background:  req.Background,
	})
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.Compose(ctx, plan, []*media.Handle{src}, s.outDir)
	if err != nil {
		return nil, err
	}
	return &MergeResult{OutputRef: out.Path, Plan: plan}, nil
}

// sourceDims defaults probeless handles to landscape HD so planning
// still has an aspect to work with.
func sourceDims(h *media.Handle) composition.Source {
	if h.Width > 0 && h.Height > 0 {
		return composition.Source{Width: h.Width, Height: h.Height}
	}
	return composition.Source{Width: 1920, Height: 1080}
}
