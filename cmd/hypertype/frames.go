package main

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

// ============================================================================
// Frame export
// ============================================================================
// `hypertype frames` types one keystroke into a scratch document on a virtual
// clock and writes every decorated frame as a PNG. It runs the same engine as
// the daemon, so the output is exactly what a surface would have been shown.
// ============================================================================

// recordedFrame is one Decorate call captured during an export.
type recordedFrame struct {
	Seq    int
	At     time.Duration
	Visual Visual
	Gutter bool
	Cells  int // width of the anchored range in characters
}

// recordingEditor decorates the wrapped document and logs every call.
type recordingEditor struct {
	*Document
	sched  *virtualScheduler
	start  time.Time
	frames []recordedFrame
}

func (r *recordingEditor) Decorate(rg Range, v Visual) (Handle, error) {
	h, err := r.Document.Decorate(rg, v)
	if err == nil {
		cells := 1
		if rg.SingleLine() {
			cells = max(1, rg.End.Char-rg.Start.Char)
		}
		r.record(v, false, cells)
	}
	return h, err
}

func (r *recordingEditor) DecorateGutter(line int, v Visual) (Handle, error) {
	h, err := r.Document.DecorateGutter(line, v)
	if err == nil {
		r.record(v, true, 1)
	}
	return h, err
}

func (r *recordingEditor) record(v Visual, gutter bool, cells int) {
	r.frames = append(r.frames, recordedFrame{
		Seq:    len(r.frames),
		At:     r.sched.Now().Sub(r.start),
		Visual: v,
		Gutter: gutter,
		Cells:  cells,
	})
}

type recordingHost struct{ ed *recordingEditor }

func (h recordingHost) ActiveEditor() Editor { return h.ed }

// FrameExport configures one export run.
type FrameExport struct {
	Text      string
	Backspace bool // delete the text again after typing it
	GlyphSize int
	OutDir    string
	Seed      uint64
}

// ExportFrames runs the keystroke and writes one PNG per frame into OutDir.
// It returns the written file names in order.
func ExportFrames(opts FrameExport, logger *slog.Logger) ([]string, error) {
	if opts.Text == "" {
		return nil, fmt.Errorf("frames: text is empty")
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("frames: create output dir: %w", err)
	}

	frames, err := recordKeystroke(opts, logger)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, f := range frames {
		img := rasterFrame(f)
		if img == nil {
			continue
		}
		name := fmt.Sprintf("%s_%03d_%04dms.png", f.Visual.Kind(), f.Seq, f.At.Milliseconds())
		if err := writePNG(filepath.Join(opts.OutDir, name), img); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	logger.Info("frames exported", "dir", opts.OutDir, "frames", len(written))
	return written, nil
}

// recordKeystroke types opts.Text (and optionally deletes it) and drains the
// clock until every animation is gone.
func recordKeystroke(opts FrameExport, logger *slog.Logger) ([]recordedFrame, error) {
	sched := newVirtualScheduler(time.Unix(0, 0))
	ed := &recordingEditor{Document: NewDocument(""), sched: sched, start: sched.Now()}

	display := NewDisplayChannel(multiSurface{}, 0, logger)
	display.MarkReady()

	engine := NewEngine(recordingHost{ed: ed}, sched, display, EngineConfig{
		GlyphSize:  opts.GlyphSize,
		PitchQuiet: defaultPitchQuiet,
		Rand:       rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
	}, logger)
	defer engine.Shutdown()

	if err := engine.HandleInsert(opts.Text); err != nil {
		return nil, err
	}
	if opts.Backspace {
		sched.Drain()
		if err := engine.HandleDeleteLeft(); err != nil {
			return nil, err
		}
	}
	sched.Drain()

	if n := engine.ActiveAnimations(); n != 0 {
		return nil, fmt.Errorf("frames: %d animations still live after drain", n)
	}
	return ed.frames, nil
}

const cellWidthPx, cellHeightPx = 8, 16

func rasterFrame(f recordedFrame) *image.NRGBA {
	switch v := f.Visual.(type) {
	case GlyphVisual:
		return v.Raster()
	case CornerBoxVisual:
		return v.Raster()
	case PulseVisual:
		return v.Raster(f.Cells*cellWidthPx+2*v.Radius, cellHeightPx+2*v.Radius)
	case GutterArrowVisual:
		return v.Raster()
	default:
		return nil
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
