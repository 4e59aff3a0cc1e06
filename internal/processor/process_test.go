package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"

	"imscale/pkg/imgutil"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: 0x40, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
}

func decodeDims(t *testing.T, path string) (int, int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode config %s: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

func TestTargetSize(t *testing.T) {
	cases := []struct {
		w, h    int
		percent float64
		wantW   int
		wantH   int
	}{
		{100, 200, 50, 50, 100},
		{100, 200, 100, 100, 200},
		{101, 201, 50, 51, 101},
		{10, 10, 1, 1, 1},
		{3, 3, 250, 8, 8},
		{100, 200, 12.5, 13, 25},
	}

	for _, tc := range cases {
		gotW, gotH := targetSize(tc.w, tc.h, tc.percent)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("targetSize(%d, %d, %g) = (%d, %d), want (%d, %d)",
				tc.w, tc.h, tc.percent, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestProcessHalvesDimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, src, 100, 200)

	res := processJob(Job{Path: src, OutPath: out}, Options{Percent: 50, Quality: 85}, DefaultCodec())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.Err)
	}

	w, h := decodeDims(t, out)
	if w != 50 || h != 100 {
		t.Fatalf("expected 50x100, got %dx%d", w, h)
	}
}

func TestProcessFullScaleKeepsDimensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, src, 37, 61)

	res := processJob(Job{Path: src, OutPath: out}, Options{Percent: 100, Quality: 85}, DefaultCodec())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.Err)
	}

	w, h := decodeDims(t, out)
	if w != 37 || h != 61 {
		t.Fatalf("expected 37x61, got %dx%d", w, h)
	}
}

func TestProcessToWebP(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "in.webp")
	writePNG(t, src, 40, 40)

	opts := Options{Percent: 50, Quality: 85, ToWebP: true}
	res := processJob(Job{Path: src, OutPath: out}, opts, DefaultCodec())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.Err)
	}
	if !strings.HasSuffix(res.OutPath, ".webp") {
		t.Fatalf("expected .webp output, got %s", res.OutPath)
	}

	kind, err := imgutil.SniffFile(out)
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if kind != imgutil.KindWebP {
		t.Fatalf("expected webp signature, got %s", kind)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode webp config: %v", err)
	}
	if cfg.Width != 20 || cfg.Height != 20 {
		t.Fatalf("expected 20x20, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestProcessWebPLosslessRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "in.webp")
	writePNG(t, src, 8, 8)

	opts := Options{Percent: 100, Quality: 85, ToWebP: true, WebPLossless: true}
	res := processJob(Job{Path: src, OutPath: out}, opts, DefaultCodec())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.Err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		t.Fatalf("open src: %v", err)
	}
	defer srcFile.Close()
	want, err := png.Decode(srcFile)
	if err != nil {
		t.Fatalf("decode src: %v", err)
	}

	outFile, err := os.Open(out)
	if err != nil {
		t.Fatalf("open out: %v", err)
	}
	defer outFile.Close()
	got, err := webp.Decode(outFile)
	if err != nil {
		t.Fatalf("decode out: %v", err)
	}

	bounds := want.Bounds()
	if got.Bounds() != bounds {
		t.Fatalf("bounds differ: %v vs %v", got.Bounds(), bounds)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			wr, wg, wb, wa := want.At(x, y).RGBA()
			gr, gg, gb, ga := got.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel (%d,%d) differs: want %v got %v", x, y, want.At(x, y), got.At(x, y))
			}
		}
	}
}

func TestProcessSkipExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, src, 10, 10)
	if err := os.WriteFile(out, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	opts := Options{Percent: 50, Quality: 85, SkipExisting: true}
	res := processJob(Job{Path: src, OutPath: out}, opts, DefaultCodec())
	if res.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s (%v)", res.Outcome, res.Err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read existing: %v", err)
	}
	if string(data) != "keep me" {
		t.Fatalf("existing output was modified")
	}
}

func TestProcessOverwritesByDefault(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, src, 10, 10)
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write existing: %v", err)
	}

	res := processJob(Job{Path: src, OutPath: out}, Options{Percent: 50, Quality: 85}, DefaultCodec())
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Outcome, res.Err)
	}

	w, h := decodeDims(t, out)
	if w != 5 || h != 5 {
		t.Fatalf("expected 5x5 overwrite, got %dx%d", w, h)
	}
}

func TestProcessCorruptFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "corrupt.jpg")
	out := filepath.Join(dir, "corrupt-out.jpg")
	if err := os.WriteFile(src, []byte("this is not an image at all"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	res := processJob(Job{Path: src, OutPath: out}, Options{Percent: 50, Quality: 85}, DefaultCodec())
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if res.Err == nil {
		t.Fatalf("expected error detail on failed result")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("no output should exist for a failed job")
	}
}
