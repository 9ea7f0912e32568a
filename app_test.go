package main

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writePhoto saves a w x h colour gradient as a PNG in dir.
func writePhoto(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(255 * x / max(1, w-1)),
				G: uint8(255 * y / max(1, h-1)),
				B: 128,
				A: 255,
			})
		}
	}
	return writePNG(t, filepath.Join(dir, name), img)
}

// writeDepth saves a w x h 16-bit depth ramp, 0 at the top-left and 1 at
// the bottom-right.
func writeDepth(t *testing.T, path string, w, h int) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	n := max(1, w*h-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(0xffff * (y*w + x) / n)})
		}
	}
	return writePNG(t, path, img)
}

func writePNG(t *testing.T, path string, img image.Image) string {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func requireNoErrors(t *testing.T, result BuildResult) {
	t.Helper()
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("build error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	if result.Mesh == nil {
		t.Fatal("expected a mesh")
	}
}

// TestE2EPhotoOnly exercises the full pipeline: photo -> estimator -> depth
// map -> builder -> mesh data. This is the same path that the Wails Build
// binding takes, but without the Wails runtime.
func TestE2EPhotoOnly(t *testing.T) {
	app := NewApp()
	photo := writePhoto(t, t.TempDir(), "street.png", 12, 8)

	result := app.Build(photo, "", "")
	requireNoErrors(t, result)

	m := result.Mesh
	if m.Width != 12 || m.Height != 8 {
		t.Fatalf("grid = %dx%d, want 12x8", m.Width, m.Height)
	}
	if got, want := len(m.Vertices), 3*12*8; got != want {
		t.Errorf("len(Vertices) = %d, want %d", got, want)
	}
	if got, want := len(m.Normals), 3*12*8; got != want {
		t.Errorf("len(Normals) = %d, want %d", got, want)
	}
	if got, want := len(m.TexCoords), 2*12*8; got != want {
		t.Errorf("len(TexCoords) = %d, want %d", got, want)
	}
	if got, want := len(m.Indices), 6*11*7; got != want {
		t.Errorf("len(Indices) = %d, want %d", got, want)
	}
	if m.ID == "" {
		t.Error("mesh has no id")
	}
	if m.Texture != photo {
		t.Errorf("Texture = %q, want %q", m.Texture, photo)
	}
	if result.Diagnostics == nil || !result.Diagnostics.Disparity {
		t.Errorf("luminance estimate should be disparity, got %+v", result.Diagnostics)
	}
}

func TestE2EExplicitDepth(t *testing.T) {
	app := NewApp()
	dir := t.TempDir()
	photo := writePhoto(t, dir, "room.png", 12, 8)
	depthPath := writeDepth(t, filepath.Join(dir, "room-depth.png"), 5, 4)

	result := app.Build(photo, depthPath, "")
	requireNoErrors(t, result)

	if result.Mesh.Width != 5 || result.Mesh.Height != 4 {
		t.Errorf("grid = %dx%d, want depth map's 5x4", result.Mesh.Width, result.Mesh.Height)
	}
	if result.Diagnostics.Disparity {
		t.Error("depth file should not be treated as disparity by default")
	}
}

func TestE2ESidecarDepth(t *testing.T) {
	app := NewApp()
	dir := t.TempDir()
	photo := writePhoto(t, dir, "beach.png", 12, 8)
	writeDepth(t, filepath.Join(dir, "beach_depth.png"), 3, 3)

	result := app.Build(photo, "", "")
	requireNoErrors(t, result)
	if result.Mesh.Width != 3 || result.Mesh.Height != 3 {
		t.Errorf("grid = %dx%d, want sidecar's 3x3", result.Mesh.Width, result.Mesh.Height)
	}
}

func TestE2EDepthOnly(t *testing.T) {
	app := NewApp()
	depthPath := writeDepth(t, filepath.Join(t.TempDir(), "scan.png"), 4, 4)

	result := app.Build("", depthPath, "")
	requireNoErrors(t, result)
	if result.Mesh.Texture != "" {
		t.Errorf("Texture = %q, want empty", result.Mesh.Texture)
	}
}

func TestE2ERecipeScale(t *testing.T) {
	app := NewApp()
	photo := writePhoto(t, t.TempDir(), "wide.png", 12, 8)

	result := app.Build(photo, "", "(relief :scale 1)")
	requireNoErrors(t, result)

	v := result.Mesh.Vertices
	if math.Abs(float64(v[0])+0.5) > 1e-6 {
		t.Errorf("top-left x = %f, want -0.5", v[0])
	}
	if math.Abs(float64(v[1])-0.5*8/12) > 1e-6 {
		t.Errorf("top-left y = %f, want %f", v[1], 0.5*8.0/12.0)
	}
}

func TestE2ERecipeError(t *testing.T) {
	app := NewApp()
	photo := writePhoto(t, t.TempDir(), "p.png", 4, 4)

	result := app.Build(photo, "", "(relief :sharpness 2)")
	if len(result.Errors) == 0 {
		t.Fatal("expected recipe error")
	}
	if !strings.Contains(result.Errors[0].Message, "unknown option") {
		t.Errorf("error = %q, want unknown option", result.Errors[0].Message)
	}
	if result.Mesh != nil {
		t.Error("expected no mesh on recipe error")
	}
}

func TestE2ENoInput(t *testing.T) {
	app := NewApp()
	result := app.Build("", "", "")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error with neither photo nor depth")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh")
	}
}

func TestE2EMissingPhoto(t *testing.T) {
	app := NewApp()
	result := app.Build(filepath.Join(t.TempDir(), "absent.jpg"), "", "")
	if len(result.Errors) == 0 {
		t.Fatal("expected an error for a missing photo")
	}
}

func TestE2EExport(t *testing.T) {
	app := NewApp()
	dir := t.TempDir()
	photo := writePhoto(t, dir, "garden.png", 6, 4)

	requireNoErrors(t, app.Build(photo, "", ""))

	out := filepath.Join(dir, "out")
	res := app.Export(out)
	if res.Error != "" {
		t.Fatalf("Export error: %s", res.Error)
	}
	for _, p := range []string{res.STL, res.OBJ, res.MTL} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing export %s: %v", p, err)
		}
	}
	if filepath.Base(res.OBJ) != "garden.obj" {
		t.Errorf("OBJ name = %q, want garden.obj", filepath.Base(res.OBJ))
	}

	info, err := os.Stat(res.STL)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(84 + 50*2*5*3); info.Size() != want {
		t.Errorf("STL size = %d, want %d", info.Size(), want)
	}

	mtl, err := os.ReadFile(res.MTL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(mtl), "map_Kd "+photo) {
		t.Errorf("MTL does not reference the photo:\n%s", mtl)
	}
}

// TestE2EExampleRecipes runs the recipes shipped in examples/ end to end.
func TestE2EExampleRecipes(t *testing.T) {
	depthPath := writeDepth(t, filepath.Join(t.TempDir(), "d.png"), 6, 5)
	for _, name := range []string{"portrait.relief", "print.relief"} {
		t.Run(name, func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join("examples", name))
			if err != nil {
				t.Fatalf("failed to read %s: %v", name, err)
			}
			result := NewApp().Build("", depthPath, string(source))
			requireNoErrors(t, result)
			if got, want := len(result.Mesh.Indices), 6*5*4; got != want {
				t.Errorf("len(Indices) = %d, want %d", got, want)
			}
		})
	}
}
