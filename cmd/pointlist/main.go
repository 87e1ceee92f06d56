// Command pointlist generates, previews and merges microscope point lists
// without running the server.
//
//	pointlist tile  -spec rois.json -o slide.xml [-preview overlay.png]
//	pointlist plate -wells A1,A2,B1 [-seed 42] -o plate.xml [-preview plate.png]
//	pointlist merge -o merged.xml a.xml b.xml
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joaomamede/lowCostHCA/internal/config"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/joaomamede/lowCostHCA/internal/render"
	"github.com/joaomamede/lowCostHCA/internal/service"
)

const usage = `usage: pointlist <command> [flags]

commands:
  tile   tile ROIs of a calibrated image into a stage point list
  plate  sample random points in selected wells of a plate
  merge  concatenate point list files
`

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var ve *pointlist.ValidationError
		if errors.As(err, &ve) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("pointlist: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "tile":
		return runTile(args[1:], stdout)
	case "plate":
		return runPlate(args[1:], stdout)
	case "merge":
		return runMerge(args[1:], stdout)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// newService builds a service without cache or run history from the config
// file, which may be absent.
func newService(configPath string) (*service.PointListService, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return service.NewPointListService(service.PointListServiceConfig{
		Tiling:    cfg.Tiling.Params(),
		Numbering: cfg.Tiling.Numbering(),
		Plate:     cfg.Plate.Params(),
		Renderer: render.NewRenderer(render.Config{
			MaxDimension:  cfg.Render.MaxDimensionPx,
			WellPixels:    cfg.Render.WellPixels,
			OrderColormap: cfg.Render.OrderColormap,
		}),
	}), nil
}

func runTile(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tile", flag.ContinueOnError)
	configPath := fs.String("config", "config/server.yaml", "Path to configuration file")
	specPath := fs.String("spec", "", "JSON tiling request (image and rois)")
	out := fs.String("o", "", "Output point list file")
	preview := fs.String("preview", "", "Optional overlay PNG")
	numbering := fs.String("numbering", "", "ROI numbering: position or id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *specPath == "" || *out == "" {
		return pointlist.Validationf("tile needs -spec and -o")
	}

	data, err := os.ReadFile(*specPath)
	if err != nil {
		return fmt.Errorf("failed to read spec: %w", err)
	}
	var req service.TilingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return pointlist.Validationf("invalid spec %s: %v", *specPath, err)
	}
	if *numbering != "" {
		req.Numbering = *numbering
	}

	svc, err := newService(*configPath)
	if err != nil {
		return err
	}
	res, err := svc.Tile(req)
	if err != nil {
		return err
	}
	if err := pointlist.WriteFile(*out, res.Points); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d points from %d ROIs to %s\n", len(res.Points), len(res.Grids), *out)

	if *preview != "" {
		png, err := svc.TilingOverlay(req)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*preview, png, 0644); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}
	return nil
}

func runPlate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("plate", flag.ContinueOnError)
	configPath := fs.String("config", "config/server.yaml", "Path to configuration file")
	wells := fs.String("wells", "", "Wells to visit, e.g. A1,A2,B1 or A1:B6")
	seed := fs.Int64("seed", 0, "Random seed (picked from the clock when unset)")
	strategy := fs.String("strategy", "", "Sampling strategy: rejection or poisson")
	points := fs.Int("n", 0, "Points per well (0 uses the config)")
	out := fs.String("o", "", "Output point list file")
	preview := fs.String("preview", "", "Optional plate map PNG")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return pointlist.Validationf("plate needs -o")
	}

	req := service.PlateRequest{Strategy: *strategy}
	if *wells != "" {
		req.Wells = strings.Split(*wells, ",")
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			req.Seed = seed
		}
	})
	if *points > 0 {
		req.PointsPerWell = points
	}

	svc, err := newService(*configPath)
	if err != nil {
		return err
	}
	res, err := svc.Plate(req)
	if err != nil {
		return err
	}
	if err := pointlist.WriteFile(*out, res.Points); err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.Summary)
	fmt.Fprintf(stdout, "wrote %d points to %s (seed %d)\n", len(res.Points), *out, res.Seed)

	if *preview != "" {
		// Reuse the seed so the map shows the points just written.
		req.Seed = &res.Seed
		png, err := svc.PlatePreview(req)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*preview, png, 0644); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}
	return nil
}

func runMerge(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	out := fs.String("o", "", "Output point list file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return pointlist.Validationf("merge needs -o")
	}

	list, err := pointlist.MergeFiles(fs.Args())
	if err != nil {
		return err
	}
	if err := pointlist.WriteFile(*out, list); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d points from %d files to %s\n", len(list), fs.NArg(), *out)
	return nil
}
