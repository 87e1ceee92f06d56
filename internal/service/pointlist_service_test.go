package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/cache"
	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/joaomamede/lowCostHCA/internal/render"
	"github.com/joaomamede/lowCostHCA/internal/runstore"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
)

func newTestService(t *testing.T, withRuns bool) *PointListService {
	t.Helper()

	cacheManager, err := cache.NewManager(cache.Config{
		PreviewSizeMB:     8,
		PreviewTTL:        time.Minute,
		DocumentCacheSize: 16,
	})
	if err != nil {
		t.Fatalf("Failed to initialize cache: %v", err)
	}
	t.Cleanup(func() { cacheManager.Close() })

	cfg := PointListServiceConfig{
		Tiling:   tiling.Params{TargetPixelSizeUM: 0.16, SensorPixels: 2040, Overlap: 0},
		Plate:    plate.DefaultParams(),
		Cache:    cacheManager,
		Renderer: render.NewRenderer(render.Config{MaxDimension: 256, WellPixels: 16}),
	}
	if withRuns {
		store, err := runstore.NewStore(filepath.Join(t.TempDir(), "runs.sqlite"))
		if err != nil {
			t.Fatalf("Failed to open run store: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		cfg.Runs = store
	}
	return NewPointListService(cfg)
}

func scenarioRequest() TilingRequest {
	return TilingRequest{
		Image: ImageSpec{Name: "slide", Width: 2040, Height: 2040, PixelSizeUM: 0.33, StageX: 1000, StageY: 2000, StageZ: 5},
		ROIs:  []ROISpec{{Shape: "rectangle", X: 0, Y: 0, Width: 2040, Height: 2040}},
	}
}

func TestTile_SavesRun(t *testing.T) {
	svc := newTestService(t, true)

	out, err := svc.Tile(scenarioRequest())
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if got := strings.Join(out.Points.Names(), ","); got != "slide_ROI1_A1,slide_ROI1_A2,slide_ROI1_B2,slide_ROI1_B1" {
		t.Fatalf("unexpected names: %s", got)
	}
	if out.RunID == "" {
		t.Fatalf("expected a run id")
	}

	doc, err := svc.RunDocument(out.RunID)
	if err != nil {
		t.Fatalf("RunDocument: %v", err)
	}
	if !bytes.Equal(doc, out.Document) {
		t.Fatalf("stored document differs from response")
	}

	run, err := svc.GetRun(out.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v, %v", run, err)
	}
	if run.Kind != runstore.KindTiling || run.Points != 4 || run.Label != "slide" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestTile_OverrideCameraAndNumbering(t *testing.T) {
	svc := newTestService(t, false)

	req := scenarioRequest()
	overlap := 0.5
	req.Overlap = &overlap
	req.Numbering = "id"
	req.ROIs[0].ID = 9

	out, err := svc.Tile(req)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	// step 163.2 um over 673.2 um: 4 x 4 tiles
	if len(out.Points) != 16 {
		t.Fatalf("expected 16 points, got %d", len(out.Points))
	}
	if out.Points[0].Name != "slide_ROI9_A1" {
		t.Fatalf("unexpected first name %q", out.Points[0].Name)
	}
	if out.RunID != "" {
		t.Fatalf("no run should be saved without a store")
	}
}

func TestTile_EmptyResultIsNotSaved(t *testing.T) {
	svc := newTestService(t, true)

	req := scenarioRequest()
	req.ROIs = []ROISpec{{Shape: "rectangle", X: 5000, Y: 5000, Width: 100, Height: 100}}

	out, err := svc.Tile(req)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if len(out.Points) != 0 || out.Document != nil || out.RunID != "" {
		t.Fatalf("expected empty outcome, got %+v", out)
	}
	runs, _ := svc.ListRuns("", 0)
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}

func TestTile_Validation(t *testing.T) {
	svc := newTestService(t, false)
	var ve *pointlist.ValidationError

	req := scenarioRequest()
	req.ROIs = nil
	if _, err := svc.Tile(req); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for no ROIs, got %v", err)
	}

	req = scenarioRequest()
	req.ROIs[0].Shape = "star"
	if _, err := svc.Tile(req); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for bad shape, got %v", err)
	}

	req = scenarioRequest()
	req.Image.Name = ""
	if _, err := svc.Tile(req); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for missing image name, got %v", err)
	}
}

func TestPlate_SeedReproduces(t *testing.T) {
	svc := newTestService(t, true)

	seed := int64(11)
	req := PlateRequest{Wells: []string{"A1", "A2"}, Indices: []int{13}, Seed: &seed}

	a, err := svc.Plate(req)
	if err != nil {
		t.Fatalf("Plate: %v", err)
	}
	b, err := svc.Plate(req)
	if err != nil {
		t.Fatalf("Plate: %v", err)
	}
	if !bytes.Equal(a.Document, b.Document) {
		t.Fatalf("same seed should give the same document")
	}
	if a.Summary != "Selected Wells: A1, A2, B1" {
		t.Fatalf("unexpected summary %q", a.Summary)
	}
	if len(a.Points) != 30 || a.Points[20].Name != "B1_0" {
		t.Fatalf("unexpected points: %d", len(a.Points))
	}

	run, _ := svc.GetRun(a.RunID)
	var stored PlateRequest
	if err := json.Unmarshal(run.Params, &stored); err != nil {
		t.Fatalf("params: %v", err)
	}
	if stored.Seed == nil || *stored.Seed != seed {
		t.Fatalf("stored params should carry the seed: %s", run.Params)
	}
}

func TestPlate_RandomSeedIsReported(t *testing.T) {
	svc := newTestService(t, true)

	out, err := svc.Plate(PlateRequest{Wells: []string{"H12"}})
	if err != nil {
		t.Fatalf("Plate: %v", err)
	}
	again, err := svc.Plate(PlateRequest{Wells: []string{"H12"}, Seed: &out.Seed})
	if err != nil {
		t.Fatalf("Plate: %v", err)
	}
	if !bytes.Equal(out.Document, again.Document) {
		t.Fatalf("reported seed should reproduce the run")
	}
}

func TestPlate_Errors(t *testing.T) {
	svc := newTestService(t, false)

	var ve *pointlist.ValidationError
	if _, err := svc.Plate(PlateRequest{}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	d := 5000.0
	var ge *pointlist.GeometryError
	if _, err := svc.Plate(PlateRequest{Wells: []string{"B2"}, MinPointDistanceUM: &d}); !errors.As(err, &ge) {
		t.Fatalf("expected GeometryError, got %v", err)
	}
	if ge.Well != "B2" {
		t.Fatalf("unexpected well %q", ge.Well)
	}
}

func TestMerge(t *testing.T) {
	svc := newTestService(t, true)

	a := pointlist.Serialize(pointlist.PointList{
		{Name: "x", X: 1, Y: 2, Z: 3, Checked: true},
		{Name: "", X: 4, Y: 5, Z: 6, Checked: false},
	})
	b := pointlist.Serialize(pointlist.PointList{{Name: "y", X: 7, Y: 8, Z: 9, Checked: true}})

	out, err := svc.Merge([]pointlist.Source{
		{Name: "plate1.xml", Reader: bytes.NewReader(a)},
		{Name: "dir/slide.xml", Reader: bytes.NewReader(b)},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := strings.Join(out.Points.Names(), ","); got != "plate1_x,plate1_P02,slide_y" {
		t.Fatalf("unexpected names %s", got)
	}
	run, _ := svc.GetRun(out.RunID)
	if run == nil || run.Kind != runstore.KindMerge || run.Label != "2 files" {
		t.Fatalf("unexpected run %+v", run)
	}

	if _, err := svc.Merge(nil); err == nil {
		t.Fatalf("expected error for no sources")
	}
}

func TestPreviews_AreCached(t *testing.T) {
	svc := newTestService(t, false)

	png1, err := svc.TilingOverlay(scenarioRequest())
	if err != nil {
		t.Fatalf("TilingOverlay: %v", err)
	}
	if !bytes.HasPrefix(png1, []byte("\x89PNG")) {
		t.Fatalf("overlay is not a PNG")
	}
	png2, _ := svc.TilingOverlay(scenarioRequest())
	if !bytes.Equal(png1, png2) {
		t.Fatalf("cached overlay differs")
	}

	seed := int64(5)
	if _, err := svc.PlatePreview(PlateRequest{Wells: []string{"A1:B2"}, Seed: &seed}); err != nil {
		t.Fatalf("PlatePreview: %v", err)
	}
	if _, err := svc.PlatePreview(PlateRequest{Wells: []string{"C3"}}); err != nil {
		t.Fatalf("PlatePreview unseeded: %v", err)
	}

	stats := svc.Stats()
	if stats["preview_cache_len"] != 2 {
		t.Fatalf("expected 2 cached previews, got %v", stats["preview_cache_len"])
	}
	if stats["preview_cache_hits"] != int64(1) {
		t.Fatalf("expected 1 cache hit, got %v", stats["preview_cache_hits"])
	}
}

func TestRuns_DisabledAndDelete(t *testing.T) {
	off := newTestService(t, false)
	if _, err := off.ListRuns("", 0); !errors.Is(err, ErrRunsDisabled) {
		t.Fatalf("expected ErrRunsDisabled, got %v", err)
	}

	svc := newTestService(t, true)
	out, err := svc.Tile(scenarioRequest())
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	ok, err := svc.DeleteRun(out.RunID)
	if err != nil || !ok {
		t.Fatalf("DeleteRun = %v, %v", ok, err)
	}
	doc, err := svc.RunDocument(out.RunID)
	if err != nil || doc != nil {
		t.Fatalf("expected no document after delete, got %d bytes, %v", len(doc), err)
	}
}
