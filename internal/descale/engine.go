package descale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/logger"
)

// worstScore stands in for candidates whose BRISQUE evaluation failed.
const worstScore float32 = 100

var (
	// ErrCancelled is returned when the context ends between candidates.
	ErrCancelled = errors.New("descale cancelled")
	// ErrModelUnavailable is returned when the scorer cannot start.
	ErrModelUnavailable = brisque.ErrModelUnavailable
)

// Scorer computes a BRISQUE score for a raster.
type Scorer interface {
	Score(ctx context.Context, src imaging.PixelSource) (float32, error)
	Ready(ctx context.Context) error
}

// ScanResult is one evaluated candidate size.
type ScanResult struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	BrisqueScore  float32 `json:"brisque_score"`
	Sharpness     float32 `json:"sharpness"`
	CombinedScore float32 `json:"combined_score"`
}

// Result is the outcome of a completed search.
type Result struct {
	OriginalWidth         int
	OriginalHeight        int
	OriginalBrisqueScore  float32
	OriginalSharpness     float32
	DetectedOptimalWidth  int
	DetectedOptimalHeight int
	BestBrisqueScore      float32
	BestSharpness         float32
	CombinedScore         float32
	Resampled             *imaging.ARGBImage
	CoarseScanResults     []ScanResult
	FineScanResults       []ScanResult
	Duration              time.Duration
}

// Engine runs the descale search. Candidates are evaluated one at a time;
// an Engine can serve concurrent Descale calls.
type Engine struct {
	scorer Scorer
	log    *logrus.Entry
}

// NewEngine creates an engine that scores candidates with scorer.
func NewEngine(scorer Scorer) *Engine {
	return &Engine{
		scorer: scorer,
		log:    logger.WithField("component", "descale"),
	}
}

// run carries the per-call state of one search.
type run struct {
	ctx        context.Context
	engine     *Engine
	src        *imaging.ARGBImage
	onProgress ProgressFunc
	origW      int
	origH      int
}

func (r *run) emit(phase string, step int, size, msg string) {
	if r.onProgress == nil {
		return
	}
	r.onProgress(ProgressUpdate{
		Phase:       phase,
		CurrentStep: step,
		TotalSteps:  100,
		CurrentSize: size,
		Message:     msg,
	})
}

// heightFor keeps the aspect ratio, computed in single precision.
func (r *run) heightFor(w int) int {
	h := int(float32(r.origH) * (float32(w) / float32(r.origW)))
	return max(h, 1)
}

func (r *run) cancelled() error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// evaluate resamples, scores and measures one candidate. The resized raster
// is dropped before returning.
func (r *run) evaluate(w, h int) ScanResult {
	resized := imaging.ResampleARGB(r.src, w, h)
	return ScanResult{
		Width:        w,
		Height:       h,
		BrisqueScore: r.score(resized),
		Sharpness:    imaging.Sharpness(resized),
	}
}

func (r *run) score(src imaging.PixelSource) float32 {
	s, err := r.engine.scorer.Score(r.ctx, src)
	if err != nil || s < 0 {
		r.engine.log.WithError(err).WithFields(logrus.Fields{
			"width":  src.Width(),
			"height": src.Height(),
		}).Warn("BRISQUE evaluation failed, scoring candidate as worst")
		return worstScore
	}
	return s
}

func sizeLabel(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}

// Descale searches for the width whose downsample balances low BRISQUE
// against retained sharpness. onProgress may be nil. When ctx ends between
// candidates the partial scan is discarded and an error wrapping
// ErrCancelled is returned.
func (e *Engine) Descale(ctx context.Context, src imaging.PixelSource, opts Options, onProgress ProgressFunc) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if src.Width() <= 0 || src.Height() <= 0 {
		return nil, imaging.ErrEmptyImage
	}
	if err := e.scorer.Ready(ctx); err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	start := time.Now()
	r := &run{
		ctx:        ctx,
		engine:     e,
		src:        imaging.CopyPixels(src),
		onProgress: onProgress,
		origW:      src.Width(),
		origH:      src.Height(),
	}
	origLabel := sizeLabel(r.origW, r.origH)
	minW := max(int(float64(r.origW)*opts.MinWidthRatio), 1)

	log := e.log.WithFields(logrus.Fields{
		"width":       r.origW,
		"height":      r.origH,
		"min_width":   minW,
		"coarse_step": opts.CoarseStep,
		"fine_step":   opts.FineStep,
	})
	log.Info("Descale started")

	r.emit(PhaseInitialization, 0, origLabel, "Analyzing original image...")
	if err := r.cancelled(); err != nil {
		return nil, err
	}
	origScore := r.score(r.src)
	origSharp := imaging.Sharpness(r.src)
	r.emit(PhaseInitialization, 5, origLabel,
		fmt.Sprintf("Original BRISQUE: %.2f, Sharpness: %.2f", origScore, origSharp))

	// Coarse: shrink from the full width, tracking the lowest raw BRISQUE.
	coarseTotal := (r.origW-minW)/opts.CoarseStep + 1
	coarse := make([]ScanResult, 0, coarseTotal)
	bestCoarse := 0
	for w, i := r.origW, 1; w >= minW; w, i = w-opts.CoarseStep, i+1 {
		if err := r.cancelled(); err != nil {
			log.Info("Descale cancelled during coarse scan")
			return nil, err
		}
		h := r.heightFor(w)
		r.emit(PhaseCoarse, 5+i*45/coarseTotal, sizeLabel(w, h),
			fmt.Sprintf("Scaling %dx%d (%d/%d)", w, h, i, coarseTotal))

		res := r.evaluate(w, h)
		res.CombinedScore = res.BrisqueScore
		coarse = append(coarse, res)
		if res.BrisqueScore < coarse[bestCoarse].BrisqueScore {
			bestCoarse = len(coarse) - 1
		}
		log.WithFields(logrus.Fields{
			"phase":     "coarse",
			"candidate": sizeLabel(w, h),
			"brisque":   res.BrisqueScore,
			"sharpness": res.Sharpness,
		}).Debug("Candidate evaluated")
	}
	best := coarse[bestCoarse]
	r.emit(PhaseCoarseDone, 50, sizeLabel(best.Width, best.Height),
		fmt.Sprintf("Best coarse result: %dx%d (BRISQUE: %.2f)", best.Width, best.Height, best.BrisqueScore))

	// Fine: step through a window around the coarse winner.
	startW := max(minW, best.Width-opts.FineRange)
	endW := min(r.origW, best.Width+opts.FineRange)
	fineTotal := (endW-startW)/opts.FineStep + 1
	fine := make([]ScanResult, 0, fineTotal)
	for w, i := startW, 1; w <= endW; w, i = w+opts.FineStep, i+1 {
		if err := r.cancelled(); err != nil {
			log.Info("Descale cancelled during fine scan")
			return nil, err
		}
		h := r.heightFor(w)
		r.emit(PhaseFine, 50+i*40/fineTotal, sizeLabel(w, h),
			fmt.Sprintf("Refining %dx%d (%d/%d)", w, h, i, fineTotal))

		res := r.evaluate(w, h)
		fine = append(fine, res)
		log.WithFields(logrus.Fields{
			"phase":     "fine",
			"candidate": sizeLabel(w, h),
			"brisque":   res.BrisqueScore,
			"sharpness": res.Sharpness,
		}).Debug("Candidate evaluated")
	}
	r.emit(PhaseFineDone, 90, "", "Analyzing...")

	winner := best
	if len(fine) > 0 {
		winner = fine[rank(fine, opts.BrisqueWeight, opts.SharpnessWeight)]
	}
	winLabel := sizeLabel(winner.Width, winner.Height)
	r.emit(PhaseFinalizing, 95, winLabel,
		fmt.Sprintf("Optimal size: %s (BRISQUE: %.2f)", winLabel, winner.BrisqueScore))

	result := &Result{
		OriginalWidth:         r.origW,
		OriginalHeight:        r.origH,
		OriginalBrisqueScore:  origScore,
		OriginalSharpness:     origSharp,
		DetectedOptimalWidth:  winner.Width,
		DetectedOptimalHeight: winner.Height,
		BestBrisqueScore:      winner.BrisqueScore,
		BestSharpness:         winner.Sharpness,
		CombinedScore:         winner.CombinedScore,
		Resampled:             imaging.ResampleARGB(r.src, winner.Width, winner.Height),
		CoarseScanResults:     coarse,
		FineScanResults:       fine,
		Duration:              time.Since(start),
	}
	r.emit(PhaseComplete, 100, winLabel, fmt.Sprintf("Descaling done! %s -> %s", origLabel, winLabel))

	log.WithFields(logrus.Fields{
		"optimal":  winLabel,
		"brisque":  winner.BrisqueScore,
		"combined": winner.CombinedScore,
		"duration": result.Duration,
	}).Info("Descale completed")
	return result, nil
}
