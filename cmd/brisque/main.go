// Command brisque scores images and searches for their native resolution.
//
//	brisque score [-model path] <image>...
//	brisque descale [flags] <in> <out.png>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/anime-shed/image-descaler/internal/brisque"
	"github.com/anime-shed/image-descaler/internal/descale"
	"github.com/anime-shed/image-descaler/internal/imaging"
	"github.com/anime-shed/image-descaler/internal/logger"
	"github.com/anime-shed/image-descaler/internal/repository"
	"github.com/anime-shed/image-descaler/internal/storage"
	"github.com/anime-shed/image-descaler/pkg/validation"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n  %[1]s score [flags] <image>...\n  %[1]s descale [flags] <in> <out.png>\n", filepath.Base(os.Args[0]))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "score":
		err = runScore(ctx, os.Args[2:])
	case "descale":
		err = runDescale(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type modelFlags struct {
	path     string
	digest   string
	cacheDir string
	logLevel string
}

func (m *modelFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.path, "model", "assets/brisque_model.bin", "BRISQUE model file (a .zst suffix means zstd-compressed)")
	fs.StringVar(&m.digest, "digest", repository.ProductionModelDigest, "expected SHA-256 of the uncompressed model")
	fs.StringVar(&m.cacheDir, "cache", filepath.Join(os.TempDir(), "image-descaler"), "model cache directory")
	fs.StringVar(&m.logLevel, "log", "warn", "log level")
}

func (m *modelFlags) assessor() *brisque.Assessor {
	logger.Configure(m.logLevel, os.Stderr)
	repo := repository.NewModelRepository(
		storage.NewFileSource(filepath.Dir(m.path)),
		repository.ModelRepositoryConfig{
			AssetName:      filepath.Base(m.path),
			CacheDir:       m.cacheDir,
			ExpectedDigest: m.digest,
		},
	)
	return brisque.NewAssessor(repo)
}

func decodeFile(path string) (*imaging.ARGBImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func runScore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	var mf modelFlags
	mf.register(fs)
	fs.Parse(args)
	if fs.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	assessor := mf.assessor()
	if err := assessor.Ready(ctx); err != nil {
		return err
	}

	for _, path := range fs.Args() {
		img, err := decodeFile(path)
		if err != nil {
			return err
		}
		score := assessor.AssessImageQuality(ctx, img)
		sharp := imaging.Sharpness(img)
		fmt.Printf("%s\t%dx%d\tbrisque=%.2f (%s)\tsharpness=%.2f (%s)\n",
			path, img.Width(), img.Height(),
			score, validation.BrisqueGrade(score),
			sharp, validation.SharpnessGrade(sharp))
	}
	return nil
}

func runDescale(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("descale", flag.ExitOnError)
	var mf modelFlags
	mf.register(fs)
	defaults := descale.DefaultOptions()
	coarse := fs.Int("coarse", defaults.CoarseStep, "coarse scan step in pixels")
	fine := fs.Int("fine", defaults.FineStep, "fine scan step in pixels")
	fineRange := fs.Int("range", defaults.FineRange, "fine scan half-width around the coarse best")
	ratio := fs.Float64("min-ratio", defaults.MinWidthRatio, "smallest candidate width as a fraction of the original")
	bw := fs.Float64("brisque-weight", defaults.BrisqueWeight, "weight of the normalized BRISQUE score")
	sw := fs.Float64("sharpness-weight", defaults.SharpnessWeight, "weight of the normalized sharpness")
	quiet := fs.Bool("q", false, "suppress progress output")
	fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
		os.Exit(2)
	}

	opts := defaults.
		WithCoarseStep(*coarse).
		WithFineStep(*fine).
		WithFineRange(*fineRange).
		WithMinWidthRatio(*ratio).
		WithWeights(*bw, *sw)
	if err := opts.Validate(); err != nil {
		return err
	}

	img, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}

	var progress descale.ProgressFunc
	if !*quiet {
		progress = func(u descale.ProgressUpdate) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %-22s %-12s", u.CurrentStep, u.Phase, u.CurrentSize)
		}
	}

	res, err := descale.NewEngine(mf.assessor()).Descale(ctx, img, opts, progress)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if errors.Is(err, descale.ErrCancelled) {
		return errors.New("interrupted")
	}
	if err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	if err := png.Encode(out, res.Resampled.ToImage()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Printf("original %dx%d brisque=%.2f sharpness=%.2f\n",
		res.OriginalWidth, res.OriginalHeight, res.OriginalBrisqueScore, res.OriginalSharpness)
	fmt.Printf("detected %dx%d brisque=%.2f sharpness=%.2f combined=%.3f (%s)\n",
		res.DetectedOptimalWidth, res.DetectedOptimalHeight,
		res.BestBrisqueScore, res.BestSharpness, res.CombinedScore, res.Duration.Round(1e6))
	return nil
}
