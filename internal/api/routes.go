// Package api provides HTTP handlers for the point list server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/joaomamede/lowCostHCA/internal/runstore"
	"github.com/joaomamede/lowCostHCA/internal/service"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
)

const (
	maxJSONBody   = 8 << 20
	maxUploadBody = 32 << 20
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Service     *service.PointListService
	CORSOrigins []string
	Title       string
	// Defaults are echoed by /api/defaults so clients can prefill forms.
	TilingDefaults tiling.Params
	PlateDefaults  plate.Params
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	svc := cfg.Service
	r.Route("/api", func(r chi.Router) {
		r.Get("/defaults", defaultsHandler(cfg))
		r.Get("/stats", statsHandler(svc))

		r.Post("/tiling", tilingHandler(svc))
		r.Post("/tiling/overlay.png", tilingOverlayHandler(svc))

		r.Post("/plate", plateHandler(svc))
		r.Post("/plate/preview.png", platePreviewHandler(svc))

		r.Post("/merge", mergeHandler(svc))

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runsListHandler(svc))
			r.Get("/{run_id}", runGetHandler(svc))
			r.Get("/{run_id}/pointlist.xml", runDocumentHandler(svc))
			r.Delete("/{run_id}", runDeleteHandler(svc))
		})
	})

	return r
}

// writeError maps engine errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *pointlist.ValidationError
		pe *pointlist.ParseError
		ge *pointlist.GeometryError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe):
		status = http.StatusBadRequest
	case errors.As(err, &ge):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRunsDisabled):
		status = http.StatusNotImplemented
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] internal error: %v", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDocument sends a point list document as a download. Empty documents
// are refused; nothing is written for a list without points.
func writeDocument(w http.ResponseWriter, filename string, doc []byte) {
	if len(doc) == 0 {
		writeError(w, pointlist.Validationf("no points to save"))
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func wantsXML(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "xml")
}

func defaultsHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"title":  cfg.Title,
			"tiling": cfg.TilingDefaults,
			"plate":  cfg.PlateDefaults,
		})
	}
}

func statsHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Stats())
	}
}

func tilingHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.TilingRequest
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.Tile(req)
		if err != nil {
			writeError(w, err)
			return
		}
		if wantsXML(r) {
			writeDocument(w, req.Image.Name+"_pointlist.xml", out.Document)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func tilingOverlayHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.TilingRequest
		if !decodeBody(w, r, &req) {
			return
		}
		data, err := svc.TilingOverlay(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writePNG(w, data)
	}
}

func plateHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.PlateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.Plate(req)
		if err != nil {
			writeError(w, err)
			return
		}
		if wantsXML(r) {
			writeDocument(w, "plate_pointlist.xml", out.Document)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func platePreviewHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.PlateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		data, err := svc.PlatePreview(req)
		if err != nil {
			writeError(w, err)
			return
		}
		writePNG(w, data)
	}
}

// mergeHandler merges the uploaded "files" parts in upload order. The merged
// document is returned unless format=json is requested.
func mergeHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		if err := r.ParseMultipartForm(maxUploadBody); err != nil {
			http.Error(w, "invalid multipart body: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File["files"]
		sources := make([]pointlist.Source, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
				return
			}
			defer f.Close()
			sources = append(sources, pointlist.Source{Name: fh.Filename, Reader: f})
		}

		out, err := svc.Merge(sources)
		if err != nil {
			writeError(w, err)
			return
		}
		if strings.EqualFold(r.URL.Query().Get("format"), "json") {
			writeJSON(w, http.StatusOK, out)
			return
		}
		name := r.FormValue("output")
		if name == "" {
			name = "merged.xml"
		}
		writeDocument(w, name, out.Document)
	}
}

func runsListHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		kind := runstore.Kind(r.URL.Query().Get("kind"))
		switch kind {
		case "", runstore.KindTiling, runstore.KindPlate, runstore.KindMerge:
		default:
			http.Error(w, "invalid kind", http.StatusBadRequest)
			return
		}

		runs, err := svc.ListRuns(kind, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if runs == nil {
			runs = []*runstore.Run{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"runs":  runs,
			"total": len(runs),
		})
	}
}

func runGetHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "run_id")
		run, err := svc.GetRun(runID)
		if err != nil {
			writeError(w, err)
			return
		}
		if run == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func runDocumentHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "run_id")
		doc, err := svc.RunDocument(runID)
		if err != nil {
			writeError(w, err)
			return
		}
		if doc == nil {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeDocument(w, runID+".xml", doc)
	}
}

func runDeleteHandler(svc *service.PointListService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "run_id")
		ok, err := svc.DeleteRun(runID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
