package processor

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"imscale/pkg/imgutil"
)

// processJob runs the full per-image pipeline for one Job and always
// returns exactly one Result. Any panic inside the pipeline is recovered
// here so a single bad file cannot take down the run.
func processJob(job Job, opts Options, codec Codec) (res Result) {
	res = Result{Path: job.Path, OutPath: job.OutPath}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	if opts.SkipExisting {
		if _, err := os.Stat(job.OutPath); err == nil {
			res.Outcome = OutcomeSkipped
			return res
		}
	}

	src, err := os.ReadFile(job.Path)
	if err != nil {
		return failed(res, fmt.Errorf("read: %w", err))
	}

	kind, err := imgutil.SniffReader(bytes.NewReader(src))
	if err != nil || kind == imgutil.KindUnknown {
		if err == nil {
			err = fmt.Errorf("unrecognized image signature")
		}
		return failed(res, fmt.Errorf("decode: %w", err))
	}

	img, err := codec.Decode(bytes.NewReader(src), kind)
	if err != nil {
		return failed(res, fmt.Errorf("decode: %w", err))
	}

	width, height := targetSize(img.Bounds().Dx(), img.Bounds().Dy(), opts.Percent)
	if width != img.Bounds().Dx() || height != img.Bounds().Dy() {
		img = codec.Resample(img, width, height)
	}

	outKind := kind
	if opts.ToWebP {
		outKind = imgutil.KindWebP
	}

	var buf bytes.Buffer
	encOpts := EncodeOptions{
		Quality:  opts.Quality,
		Optimize: opts.Optimize,
		Lossless: opts.WebPLossless,
	}
	if err := codec.Encode(&buf, img, outKind, encOpts); err != nil {
		return failed(res, fmt.Errorf("encode: %w", err))
	}
	encoded := buf.Bytes()

	if opts.StripMetadata {
		// Re-encoding already drops embedded metadata; the scan only
		// feeds the summary's stripped-entries count.
		res.TagsStripped = countMetadataTags(bytes.NewReader(src))
	} else if outKind == kind {
		encoded = carryMetadata(src, encoded, kind)
	}

	if err := writeAtomic(job.OutPath, encoded); err != nil {
		return failed(res, fmt.Errorf("write: %w", err))
	}

	res.BytesSaved = int64(len(src)) - int64(len(encoded))
	res.Outcome = OutcomeSuccess
	return res
}

func failed(res Result, err error) Result {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

// targetSize scales both dimensions independently by percent, rounding to
// nearest with a floor of one pixel.
func targetSize(width, height int, percent float64) (int, int) {
	w := int(math.Round(float64(width) * percent / 100))
	h := int(math.Round(float64(height) * percent / 100))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// writeAtomic writes data to a temporary file in the destination directory
// and renames it into place, so a crash never leaves a partial output.
func writeAtomic(destPath string, data []byte) error {
	destDir := filepath.Dir(destPath)

	tmpFile, err := os.CreateTemp(destDir, "imscale-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), destPath)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
