package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/magicphoto/relief/pkg/config"
	"github.com/magicphoto/relief/pkg/depth"
	"github.com/magicphoto/relief/pkg/export"
	"github.com/magicphoto/relief/pkg/mesh"
	"github.com/magicphoto/relief/pkg/pipeline"
	"github.com/magicphoto/relief/pkg/recipe"
	"github.com/magicphoto/relief/pkg/tessellate"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx       context.Context
	settings  *config.Settings
	engine    *recipe.Engine
	processor *pipeline.Processor

	mu     sync.Mutex
	photos map[string]string // relief ID -> photo used as its texture
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	ID        string    `json:"id"`
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	TexCoords []float32 `json:"texCoords"`
	Indices   []uint32  `json:"indices"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Texture   string    `json:"texture"`
}

// EvalErrorData is a JSON-serializable error for the frontend. Line points
// into the recipe when the problem came from it.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// DiagnosticsData reports depth samples that needed clamping.
type DiagnosticsData struct {
	Clamped   int     `json:"clamped"`
	Trimmed   int     `json:"trimmed"`
	NonFinite int     `json:"nonFinite"`
	MinDepth  float32 `json:"minDepth"`
	MaxDepth  float32 `json:"maxDepth"`
	Disparity bool    `json:"disparity"`
}

// BuildResult is the full result returned to the frontend.
type BuildResult struct {
	Mesh        *MeshData        `json:"mesh"`
	Diagnostics *DiagnosticsData `json:"diagnostics"`
	Errors      []EvalErrorData  `json:"errors"`
	Warnings    []EvalErrorData  `json:"warnings"`
}

// ExportResult lists the written files, or the reason nothing was written.
type ExportResult struct {
	STL   string `json:"stl"`
	OBJ   string `json:"obj"`
	MTL   string `json:"mtl"`
	Error string `json:"error"`
}

// NewApp creates an App with default settings.
func NewApp() *App {
	return NewAppWithSettings(config.Empty())
}

// NewAppWithSettings creates an App from loaded settings. A settings recipe
// that fails to evaluate is logged and ignored.
func NewAppWithSettings(s *config.Settings) *App {
	eng := recipe.NewEngine()
	opts := eng.Defaults()
	opts.Workers = s.GetWorkers()
	eng.SetDefaults(opts)

	if src := s.GetRecipe(); src != "" {
		base, evalErrs, err := eng.Evaluate(src)
		switch {
		case err != nil:
			log.Printf("Settings recipe fatal error: %v", err)
		case len(evalErrs) > 0:
			log.Printf("Settings recipe ignored: %v", evalErrs[0])
		default:
			eng.SetDefaults(base)
		}
	}

	b, err := tessellate.New(eng.Defaults())
	if err != nil {
		log.Printf("Invalid default options, using built-in defaults: %v", err)
		b, _ = tessellate.New(tessellate.DefaultOptions())
	}

	return &App{
		settings:  s,
		engine:    eng,
		processor: pipeline.New(s.Estimator(), b, s.GetEstimateTimeout()),
		photos:    make(map[string]string),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

func (a *App) context() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

func message(msg string) EvalErrorData {
	return EvalErrorData{Message: msg}
}

// Build reconstructs a relief from a photo. The depth map comes from
// depthPath when given, then from a sidecar file next to the photo, and
// finally from the configured estimator. recipeSrc tunes the mesh.
// This is the primary binding called by the frontend.
func (a *App) Build(photoPath, depthPath, recipeSrc string) BuildResult {
	result := BuildResult{
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the recipe into builder options.
	opts, evalErrs, err := a.engine.Evaluate(recipeSrc)
	if errors.Is(err, recipe.ErrSuperseded) {
		result.Warnings = append(result.Warnings, message("build superseded by a newer request"))
		return result
	}
	if err != nil {
		log.Printf("Recipe fatal error: %v", err)
		result.Errors = append(result.Errors, message(err.Error()))
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Message: e.Message,
			})
		}
		return result
	}
	b, err := tessellate.New(opts)
	if err != nil {
		result.Errors = append(result.Errors, message(err.Error()))
		return result
	}

	// Step 2: Pick the depth source.
	req, err := a.request(photoPath, depthPath)
	if err != nil {
		result.Errors = append(result.Errors, message(err.Error()))
		return result
	}
	req.Builder = b

	// Step 3: Estimate and mesh.
	r, err := a.processor.Process(a.context(), req)
	if errors.Is(err, pipeline.ErrSuperseded) {
		result.Warnings = append(result.Warnings, message("build superseded by a newer request"))
		return result
	}
	if err != nil {
		log.Printf("Build error: %v", err)
		result.Errors = append(result.Errors, message(err.Error()))
		return result
	}

	// Step 4: Report anomalies and convert for the frontend.
	if r.Diagnostics.Anomalous() {
		result.Warnings = append(result.Warnings, message(fmt.Sprintf(
			"%d depth samples clamped to [%g, %g] (%d non-finite)",
			r.Diagnostics.Clamped, r.Diagnostics.MinDepth, r.Diagnostics.MaxDepth, r.Diagnostics.NonFinite)))
	}
	for _, f := range mesh.Validate(r.Mesh) {
		result.Warnings = append(result.Warnings, message(f.Error()))
	}

	a.rememberPhoto(r.ID, photoPath)

	result.Mesh = meshData(r, photoPath)
	result.Diagnostics = &DiagnosticsData{
		Clamped:   r.Diagnostics.Clamped,
		Trimmed:   r.Diagnostics.Trimmed,
		NonFinite: r.Diagnostics.NonFinite,
		MinDepth:  r.Diagnostics.MinDepth,
		MaxDepth:  r.Diagnostics.MaxDepth,
		Disparity: r.Disparity,
	}
	return result
}

// request resolves the photo and depth source for a build.
func (a *App) request(photoPath, depthPath string) (pipeline.Request, error) {
	var req pipeline.Request
	if photoPath != "" {
		img, err := depth.LoadImage(photoPath)
		if err != nil {
			return req, err
		}
		req.Image = img
	}

	if depthPath == "" && photoPath != "" {
		if sidecar := a.settings.SidecarPath(photoPath); fileExists(sidecar) {
			depthPath = sidecar
		}
	}
	switch {
	case depthPath != "":
		req.Estimator = depth.FileEstimator{Path: depthPath, Disparity: a.settings.GetDisparity()}
	case req.Image == nil:
		return req, errors.New("no photo or depth map given")
	}
	return req, nil
}

// rememberPhoto records the texture of a new relief and forgets those of
// reliefs that can no longer be current.
func (a *App) rememberPhoto(id, photo string) {
	cur := a.processor.Current()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.photos[id] = photo
	for k := range a.photos {
		if k != id && (cur == nil || k != cur.ID) {
			delete(a.photos, k)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func meshData(r *pipeline.Relief, texture string) *MeshData {
	m := r.Mesh
	return &MeshData{
		ID:        r.ID,
		Vertices:  m.Vertices,
		Normals:   m.Normals,
		TexCoords: m.TexCoords,
		Indices:   m.Indices,
		Width:     m.Width,
		Height:    m.Height,
		Texture:   texture,
	}
}

// Current returns the relief currently on display, or nil before the first
// successful build.
func (a *App) Current() *MeshData {
	r := a.processor.Current()
	if r == nil {
		return nil
	}
	a.mu.Lock()
	photo := a.photos[r.ID]
	a.mu.Unlock()
	return meshData(r, photo)
}

// Export writes the current relief as STL, OBJ and MTL into dir, or into the
// configured export directory when dir is empty.
func (a *App) Export(dir string) ExportResult {
	r := a.processor.Current()
	if r == nil {
		return ExportResult{Error: "nothing to export: no relief has been built"}
	}
	if dir == "" {
		dir = a.settings.GetExportDir()
	}

	a.mu.Lock()
	photo := a.photos[r.ID]
	a.mu.Unlock()

	name := "relief"
	if photo != "" {
		name = filepath.Base(photo)
	}
	files, err := export.SaveAll(dir, name, r.Mesh, photo)
	if err != nil {
		log.Printf("Export error: %v", err)
		return ExportResult{Error: err.Error()}
	}
	log.Printf("Exported relief %s to %s", r.ID, dir)
	return ExportResult{STL: files.STL, OBJ: files.OBJ, MTL: files.MTL}
}
