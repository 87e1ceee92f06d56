// Package service orchestrates point list generation, previews and run history
// for the HTTP layer and the CLI.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/cache"
	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/joaomamede/lowCostHCA/internal/render"
	"github.com/joaomamede/lowCostHCA/internal/runstore"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
)

// ErrRunsDisabled is returned by run history calls when no store is configured.
var ErrRunsDisabled = errors.New("run history is disabled")

// PointListServiceConfig contains service configuration. Cache and Runs are
// optional.
type PointListServiceConfig struct {
	Tiling    tiling.Params
	Numbering tiling.Numbering
	Plate     plate.Params
	Cache     *cache.Manager
	Renderer  *render.Renderer
	Runs      *runstore.Store
}

// PointListService generates point lists and their previews.
type PointListService struct {
	tiling    tiling.Params
	numbering tiling.Numbering
	plate     plate.Params
	cache     *cache.Manager
	renderer  *render.Renderer
	runs      *runstore.Store
}

// NewPointListService creates a new service.
func NewPointListService(cfg PointListServiceConfig) *PointListService {
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewRenderer(render.Config{})
	}
	return &PointListService{
		tiling:    cfg.Tiling,
		numbering: cfg.Numbering,
		plate:     cfg.Plate,
		cache:     cfg.Cache,
		renderer:  renderer,
		runs:      cfg.Runs,
	}
}

// TilingOutcome is the result of a tiling request. Document is nil when no
// tile was accepted.
type TilingOutcome struct {
	RunID string `json:"run_id,omitempty"`
	tiling.Result
	Document []byte `json:"-"`
}

// PlateOutcome is the result of a plate request. Seed reproduces the run.
type PlateOutcome struct {
	RunID   string `json:"run_id,omitempty"`
	Seed    int64  `json:"seed"`
	Summary string `json:"summary"`
	plate.Result
	Document []byte `json:"-"`
}

// MergeOutcome is the result of merging uploaded point lists.
type MergeOutcome struct {
	RunID    string              `json:"run_id,omitempty"`
	Sources  []string            `json:"sources"`
	Points   pointlist.PointList `json:"points"`
	Document []byte              `json:"-"`
}

// Tile lays the tile grid over every ROI in req and records a run when at
// least one point was produced.
func (s *PointListService) Tile(req TilingRequest) (*TilingOutcome, error) {
	res, err := s.tile(req)
	if err != nil {
		return nil, err
	}

	out := &TilingOutcome{Result: res}
	if len(res.Points) == 0 {
		log.Printf("[PointListService] tiling %s: no tile centers inside %d ROIs", req.Image.Name, len(req.ROIs))
		return out, nil
	}

	out.Document = pointlist.Serialize(res.Points)
	out.RunID, err = s.saveRun(runstore.KindTiling, req.Image.Name, req, len(res.Points), out.Document)
	if err != nil {
		return nil, err
	}
	log.Printf("[PointListService] tiling %s: %d points from %d ROIs", req.Image.Name, len(res.Points), len(req.ROIs))
	return out, nil
}

func (s *PointListService) tile(req TilingRequest) (tiling.Result, error) {
	im, rois, p, numbering, err := req.resolve(s.tiling, s.numbering)
	if err != nil {
		return tiling.Result{}, err
	}
	return tiling.TileAll(im, rois, p, numbering)
}

// TilingOverlay renders the FOV overlay PNG for req.
func (s *PointListService) TilingOverlay(req TilingRequest) ([]byte, error) {
	key, err := cache.RequestKey("overlay", req)
	if err != nil {
		return nil, err
	}
	if data, ok := s.getPreview(key); ok {
		return data, nil
	}

	im, rois, p, numbering, err := req.resolve(s.tiling, s.numbering)
	if err != nil {
		return nil, err
	}
	res, err := tiling.TileAll(im, rois, p, numbering)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.Overlay(im, rois, res)
	if err != nil {
		return nil, fmt.Errorf("failed to render overlay: %w", err)
	}
	s.setPreview(key, data)
	return data, nil
}

// Plate samples points in the requested wells and records a run.
func (s *PointListService) Plate(req PlateRequest) (*PlateOutcome, error) {
	seed, p, res, err := s.plateResult(req)
	if err != nil {
		return nil, err
	}

	out := &PlateOutcome{Seed: seed, Summary: summary(res), Result: res}
	out.Document = pointlist.Serialize(res.Points)

	// Persist the seed so the stored parameters reproduce the run.
	req.Seed = &seed
	out.RunID, err = s.saveRun(runstore.KindPlate, out.Summary, req, len(res.Points), out.Document)
	if err != nil {
		return nil, err
	}
	log.Printf("[PointListService] plate: %d points in %d wells (strategy %s, seed %d)",
		len(res.Points), len(res.Wells), p.Strategy, seed)
	return out, nil
}

// PlatePreview renders the plate map PNG for req. Only seeded requests are
// cached.
func (s *PointListService) PlatePreview(req PlateRequest) ([]byte, error) {
	var key string
	if req.Seed != nil {
		k, err := cache.RequestKey("plate", req)
		if err != nil {
			return nil, err
		}
		key = k
		if data, ok := s.getPreview(key); ok {
			return data, nil
		}
	}

	_, p, res, err := s.plateResult(req)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.PlateMap(p, res)
	if err != nil {
		return nil, fmt.Errorf("failed to render plate map: %w", err)
	}
	if key != "" {
		s.setPreview(key, data)
	}
	return data, nil
}

func (s *PointListService) plateResult(req PlateRequest) (int64, plate.Params, plate.Result, error) {
	selection, p, err := req.resolve(s.plate)
	if err != nil {
		return 0, plate.Params{}, plate.Result{}, err
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	res, err := plate.Generate(selection, p, rand.New(rand.NewSource(seed)))
	if err != nil {
		return 0, plate.Params{}, plate.Result{}, err
	}
	return seed, p, res, nil
}

func summary(res plate.Result) string {
	wells := make([]plate.Well, len(res.Wells))
	for i, ws := range res.Wells {
		wells[i] = ws.Well
	}
	return plate.Summary(wells)
}

// Merge concatenates the sources in order and records a run when the merged
// list is not empty.
func (s *PointListService) Merge(sources []pointlist.Source) (*MergeOutcome, error) {
	list, err := pointlist.Merge(sources...)
	if err != nil {
		return nil, err
	}

	out := &MergeOutcome{Points: list}
	for _, src := range sources {
		out.Sources = append(out.Sources, src.Name)
	}
	if len(list) == 0 {
		return out, nil
	}

	out.Document = pointlist.Serialize(list)
	params := map[string]any{"sources": out.Sources}
	out.RunID, err = s.saveRun(runstore.KindMerge, fmt.Sprintf("%d files", len(sources)), params, len(list), out.Document)
	if err != nil {
		return nil, err
	}
	log.Printf("[PointListService] merge: %d points from %d files", len(list), len(sources))
	return out, nil
}

func (s *PointListService) saveRun(kind runstore.Kind, label string, params any, points int, doc []byte) (string, error) {
	if s.runs == nil {
		return "", nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run params: %w", err)
	}
	run := &runstore.Run{Kind: kind, Label: label, Params: raw, Points: points}
	if err := s.runs.Create(run, doc); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	if s.cache != nil {
		s.cache.SetDocument(runDocumentKey(run.ID), doc)
	}
	return run.ID, nil
}

// ListRuns returns saved runs newest first, optionally filtered by kind.
func (s *PointListService) ListRuns(kind runstore.Kind, limit int) ([]*runstore.Run, error) {
	if s.runs == nil {
		return nil, ErrRunsDisabled
	}
	return s.runs.List(kind, limit)
}

// GetRun returns a run, or nil when it does not exist.
func (s *PointListService) GetRun(id string) (*runstore.Run, error) {
	if s.runs == nil {
		return nil, ErrRunsDisabled
	}
	return s.runs.Get(id)
}

// RunDocument returns the stored point list document of a run, or nil when
// the run does not exist.
func (s *PointListService) RunDocument(id string) ([]byte, error) {
	if s.runs == nil {
		return nil, ErrRunsDisabled
	}
	key := runDocumentKey(id)
	if s.cache != nil {
		if doc, ok := s.cache.GetDocument(key); ok {
			return doc, nil
		}
	}
	doc, err := s.runs.Document(id)
	if err != nil || doc == nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDocument(key, doc)
	}
	return doc, nil
}

// DeleteRun removes a run and reports whether it existed.
func (s *PointListService) DeleteRun(id string) (bool, error) {
	if s.runs == nil {
		return false, ErrRunsDisabled
	}
	if s.cache != nil {
		s.cache.RemoveDocument(runDocumentKey(id))
	}
	return s.runs.Delete(id)
}

// Stats returns cache and run history statistics.
func (s *PointListService) Stats() map[string]interface{} {
	stats := map[string]interface{}{}
	if s.cache != nil {
		for k, v := range s.cache.Stats() {
			stats[k] = v
		}
	}
	if s.runs != nil {
		if n, err := s.runs.Count(); err == nil {
			stats["runs"] = n
		} else {
			log.Printf("[PointListService] failed to count runs: %v", err)
		}
	}
	return stats
}

func (s *PointListService) getPreview(key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.GetPreview(key)
}

func (s *PointListService) setPreview(key string, data []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPreview(key, data); err != nil {
		log.Printf("[PointListService] preview not cached: %v", err)
	}
}

func runDocumentKey(id string) string {
	return "run:" + id
}
