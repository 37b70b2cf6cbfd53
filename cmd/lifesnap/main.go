// Command lifesnap runs the Game of Life headless and saves the final
// generation as a PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/life"
	"github.com/gogpu/life/backend"
	_ "github.com/gogpu/life/backend/software"
	_ "github.com/gogpu/life/backend/wgpu"
	"github.com/gogpu/life/internal/config"
	"github.com/gogpu/life/internal/logging"
)

func main() {
	var (
		configPath  = flag.String("config", "", "TOML or YAML configuration file")
		backendName = flag.String("backend", "", "device backend (default: first available)")
		width       = flag.Int("width", 0, "grid width in cells")
		height      = flag.Int("height", 0, "grid height in cells")
		density     = flag.Float64("density", 0, "probability that a cell starts alive")
		seed        = flag.Uint64("seed", 0, "random seed (0: time based)")
		pattern     = flag.String("pattern", "", "plaintext pattern file")
		generations = flag.Int("generations", 100, "generations to run")
		scale       = flag.Int("scale", 2, "output pixels per cell")
		output      = flag.String("output", "life.png", "output file")
		logLevel    = flag.String("loglevel", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backendName
		case "width":
			cfg.Grid.Width = *width
		case "height":
			cfg.Grid.Height = *height
		case "density":
			cfg.Seed.Density = *density
		case "seed":
			cfg.Seed.Random = *seed
		case "pattern":
			cfg.Seed.Pattern = *pattern
		case "loglevel":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if *generations < 0 || *scale < 1 {
		log.Fatalf("invalid -generations %d or -scale %d", *generations, *scale)
	}

	logger := logging.New(os.Stderr, "lifesnap", cfg.LogLevel)
	life.SetLogger(logger)

	if err := run(cfg, logger, *generations, *scale, *output); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, logger *slog.Logger, generations, scale int, output string) error {
	b, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}
	defer b.Close()
	logger.Info("backend ready", "backend", b.Name(), "device", b.Adapter().Capabilities().Name)

	size := cfg.Size()
	surface, err := b.NewSurface(size.Width, size.Height)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	if d, ok := surface.(interface{ Destroy() }); ok {
		defer d.Destroy()
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	if cfg.Seed.Random == 0 && cfg.Seed.Pattern == "" {
		opts = append(opts, life.WithRandomSeed(uint64(time.Now().UnixNano())))
	}
	sim, err := life.New(b.Adapter(), surface, size, opts...)
	if err != nil {
		return err
	}
	defer sim.Close()

	start := time.Now()
	skipped := 0
	for range generations {
		err := sim.Advance(0)
		switch {
		case err == nil:
		case errors.Is(err, life.ErrFrameSkipped):
			skipped++
		default:
			return fmt.Errorf("generation %d: %w", sim.Step(), err)
		}
	}
	cells, err := sim.Cells()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	alive, err := config.ParseColor(cfg.Render.Alive)
	if err != nil {
		return err
	}
	dead, err := config.ParseColor(cfg.Render.Dead)
	if err != nil {
		return err
	}
	img := snapshot(cells, size, scale, alive, dead)
	if err := savePNG(output, img); err != nil {
		return err
	}

	population := life.Population(cells)
	p := message.NewPrinter(language.English)
	p.Printf("%s: %d generations of %d×%d on %s in %v (%d frames skipped)\n",
		output, sim.Step(), size.Width, size.Height, b.Name(), elapsed.Round(time.Millisecond), skipped)
	p.Printf("population %d of %d cells (%.1f%%)\n",
		population, size.Cells(), 100*float64(population)/float64(size.Cells()))
	return nil
}

func openBackend(name string) (backend.Backend, error) {
	if name == "" {
		return backend.InitDefault()
	}
	b := backend.Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q (available: %v)", backend.ErrBackendNotAvailable, name, backend.Available())
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("init %s backend: %w", name, err)
	}
	return b, nil
}

// snapshot paints one pixel per cell and scales the result up with
// nearest-neighbor sampling so cells stay sharp.
func snapshot(cells []life.Cell, size life.Size, scale int, alive, dead color.Color) image.Image {
	src := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for i, c := range cells {
		x, y := i%size.Width, i/size.Width
		if c.IsAlive() {
			src.Set(x, y, alive)
		} else {
			src.Set(x, y, dead)
		}
	}
	if scale == 1 {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width*scale, size.Height*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
