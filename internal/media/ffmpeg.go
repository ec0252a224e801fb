package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/types"
	"github.com/clipforge/clipforge-backend/internal/utils"
)

// FFmpegRenderer implements Renderer by shelling out to ffmpeg. Each
// call writes a fresh file under destDir and returns its handle.
type FFmpegRenderer struct {
	log *logger.Logger
	bin string
}

func NewFFmpegRenderer(log *logger.Logger) *FFmpegRenderer {
	return &FFmpegRenderer{
		log: log.With("service", "FFmpegRenderer"),
		bin: utils.GetEnv("FFMPEG_BIN", "ffmpeg", log),
	}
}

func (r *FFmpegRenderer) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, r.bin, append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(string(out))
		return &StageError{Op: op, Retryable: true, Err: fmt.Errorf("%w: %s", err, msg)}
	}
	return nil
}

func outPath(destDir, ext string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(destDir, uuid.NewString()+ext), nil
}

func (r *FFmpegRenderer) Trim(ctx context.Context, src *Handle, segments []types.Segment, destDir string) (*Handle, error) {
	if len(segments) == 0 {
		return src, nil
	}
	out, err := outPath(destDir, ".mp4")
	if err != nil {
		return nil, &StageError{Op: "trim", Retryable: false, Err: err}
	}

	// Select each segment as its own trimmed stream, then concat.
	var filter strings.Builder
	for i, s := range segments {
		fmt.Fprintf(&filter, "[0:v]trim=start=%g:end=%g,setpts=PTS-STARTPTS[v%d];", s.Start, s.End, i)
		fmt.Fprintf(&filter, "[0:a]atrim=start=%g:end=%g,asetpts=PTS-STARTPTS[a%d];", s.Start, s.End, i)
	}
	for i := range segments {
		fmt.Fprintf(&filter, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[outv][outa]", len(segments))

	args := []string{
		"-i", src.Path,
		"-filter_complex", filter.String(),
		"-map", "[outv]", "-map", "[outa]",
		out,
	}
	if err := r.run(ctx, "trim", args); err != nil {
		return nil, err
	}
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}
	return &Handle{Path: out, Width: src.Width, Height: src.Height, Duration: total}, nil
}

func (r *FFmpegRenderer) Compose(ctx context.Context, plan *types.CompositionPlan, sources []*Handle, destDir string) (*Handle, error) {
	if len(plan.Placements) != len(sources) {
		return nil, &StageError{Op: "compose", Retryable: false,
			Err: fmt.Errorf("plan has %d placements for %d sources", len(plan.Placements), len(sources))}
	}
	out, err := outPath(destDir, ".mp4")
	if err != nil {
		return nil, &StageError{Op: "compose", Retryable: false, Err: err}
	}

	bg := plan.Background
	if bg == "" {
		bg = "black"
	}
	var filter strings.Builder
	fmt.Fprintf(&filter, "color=c=%s:s=%dx%d[base];", bg, plan.FrameWidth, plan.FrameHeight)
	prev := "base"
	for i, p := range plan.Placements {
		fmt.Fprintf(&filter, "[%d:v]%s[s%d];", i, scaleFilter(p), i)
		next := fmt.Sprintf("o%d", i)
		fmt.Fprintf(&filter, "[%s][s%d]overlay=%d:%d[%s];", prev, i, p.Frame.X, p.Frame.Y, next)
		prev = next
	}
	audioArgs := audioFilter(&filter, plan.Audio, len(sources))

	args := make([]string, 0, 2*len(sources)+8)
	for _, s := range sources {
		args = append(args, "-i", s.Path)
	}
	args = append(args, "-filter_complex", strings.TrimSuffix(filter.String(), ";"))
	args = append(args, "-map", "["+prev+"]")
	args = append(args, audioArgs...)
	args = append(args, out)
	if err := r.run(ctx, "compose", args); err != nil {
		return nil, err
	}
	return &Handle{Path: out, Width: plan.FrameWidth, Height: plan.FrameHeight}, nil
}

// scaleFilter maps a fit mode onto ffmpeg scale/crop/pad filters for
// one placement rectangle.
func scaleFilter(p types.Placement) string {
	w, h := p.Frame.Width, p.Frame.Height
	switch p.Mode {
	case types.FitCrop:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	case types.FitPad, types.FitContain:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h, w, h)
	default: // stretch
		return fmt.Sprintf("scale=%d:%d", w, h)
	}
}

func audioFilter(filter *strings.Builder, audio types.AudioSource, n int) []string {
	switch audio {
	case types.AudioNone:
		return []string{"-an"}
	case types.AudioSource1:
		return []string{"-map", "0:a?"}
	case types.AudioSource2:
		if n > 1 {
			return []string{"-map", "1:a?"}
		}
		return []string{"-map", "0:a?"}
	default: // both
		if n > 1 {
			fmt.Fprintf(filter, "[0:a][1:a]amix=inputs=2[aout];")
			return []string{"-map", "[aout]"}
		}
		return []string{"-map", "0:a?"}
	}
}

func (r *FFmpegRenderer) BurnSubtitles(ctx context.Context, src *Handle, transcript, destDir string) (*Handle, error) {
	out, err := outPath(destDir, ".mp4")
	if err != nil {
		return nil, &StageError{Op: "subtitles", Retryable: false, Err: err}
	}
	srt := strings.TrimSuffix(out, ".mp4") + ".srt"
	if err := os.WriteFile(srt, []byte(transcript), 0o644); err != nil {
		return nil, &StageError{Op: "subtitles", Retryable: false, Err: err}
	}
	args := []string{
		"-i", src.Path,
		"-vf", "subtitles=" + srt,
		"-c:a", "copy",
		out,
	}
	if err := r.run(ctx, "subtitles", args); err != nil {
		return nil, err
	}
	return &Handle{Path: out, Width: src.Width, Height: src.Height, Duration: src.Duration}, nil
}

func (r *FFmpegRenderer) RemoveWatermark(ctx context.Context, src *Handle, destDir string) (*Handle, error) {
	out, err := outPath(destDir, ".mp4")
	if err != nil {
		return nil, &StageError{Op: "watermark", Retryable: false, Err: err}
	}
	// Platform watermarks sit in the corners; delogo over both bottom
	// corners covers the common cases without a detection pass.
	w, h := src.Width, src.Height
	if w == 0 || h == 0 {
		w, h = 1080, 1920
	}
	box := fmt.Sprintf("delogo=x=%d:y=%d:w=%d:h=%d", w-w/5-10, h-h/10-10, w/5, h/10)
	args := []string{
		"-i", src.Path,
		"-vf", box,
		"-c:a", "copy",
		out,
	}
	if err := r.run(ctx, "watermark", args); err != nil {
		return nil, err
	}
	return &Handle{Path: out, Width: src.Width, Height: src.Height, Duration: src.Duration}, nil
}

func (r *FFmpegRenderer) MuxAudio(ctx context.Context, video, audio *Handle, destDir string) (*Handle, error) {
	out, err := outPath(destDir, ".mp4")
	if err != nil {
		return nil, &StageError{Op: "mux", Retryable: false, Err: err}
	}
	args := []string{
		"-i", video.Path,
		"-i", audio.Path,
		"-filter_complex", "[0:a][1:a]amix=inputs=2:duration=first[aout]",
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy",
		out,
	}
	if err := r.run(ctx, "mux", args); err != nil {
		return nil, err
	}
	return &Handle{Path: out, Width: video.Width, Height: video.Height, Duration: video.Duration}, nil
}
