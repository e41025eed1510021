package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/birdseye/config"
	"go.viam.com/birdseye/logging"
	"go.viam.com/birdseye/rimage/imageset"
	"go.viam.com/birdseye/rimage/transform"
)

// framesPerWorker bounds how many decoded frames are held in memory per worker.
const framesPerWorker = 4

func run(ctx context.Context, cfg *config.Config, out io.Writer, logger logging.Logger) error {
	imagePaths := cfg.ImagePaths()
	frames, err := imageset.Group(imagePaths, cfg.Batch)
	if err != nil {
		return err
	}

	// the principal point of every camera comes from the size of the first image
	size, err := imageset.ImageSize(frames[0].Paths[0])
	if err != nil {
		return err
	}

	mapper, err := transform.NewGroundPlaneMapper(cfg.Output.GroundPlane())
	if err != nil {
		return err
	}
	ipms, err := cameraIPMs(cfg.CalibrationFiles(), size.X, size.Y, mapper)
	if err != nil {
		return err
	}

	if cfg.MatricesOnly {
		for idx, ipm := range ipms {
			if _, err := fmt.Fprintf(out, "OpenCV homography for %s:\n%v\n", imagePaths[idx], ipm); err != nil {
				return err
			}
		}
		return nil
	}

	opts, err := cfg.Output.WarpOptions()
	if err != nil {
		return err
	}
	warper, err := transform.NewBatchWarper(ipms, mapper.OutputSize(), opts, logger.Sublogger("warp"))
	if err != nil {
		return err
	}

	logger.Infof("Processing %d frames with resolution %dx%d into %dx%d...",
		len(frames), size.X, size.Y, mapper.OutputSize().X, mapper.OutputSize().Y)

	outDirs := cameraOutputDirs(cfg.Output.Dir, cfg.CalibrationFiles())
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var results []transform.FrameResult
	for _, chunk := range lo.Chunk(frames, workers*framesPerWorker) {
		if err := ctx.Err(); err != nil {
			return err
		}
		results = append(results, processChunk(ctx, warper, chunk, outDirs, workers, logger)...)
	}

	failed := lo.CountBy(results, func(res transform.FrameResult) bool { return res.Err != nil })
	logger.Infow("done", "frames", len(results), "written", len(results)-failed, "failed", failed)
	if errs := transform.BatchErrors(results); errs != nil {
		return errors.Wrapf(errs, "%d of %d frames failed", failed, len(results))
	}
	return nil
}

// cameraIPMs loads every calibration file and computes its IPM. It stops at the first camera
// that cannot be used and names its calibration file.
func cameraIPMs(calibrationFiles []string, width, height int, mapper *transform.GroundPlaneMapper) ([]transform.Homography, error) {
	ipms := make([]transform.Homography, 0, len(calibrationFiles))
	for _, path := range calibrationFiles {
		record, err := transform.ReadCalibrationFile(path)
		if err != nil {
			return nil, err
		}
		params, err := record.Parameters(width, height)
		if err != nil {
			return nil, errors.Wrapf(err, "camera config %q", path)
		}
		cam, err := transform.NewCameraModel(params)
		if err != nil {
			return nil, errors.Wrapf(err, "camera config %q", path)
		}
		ipm, err := mapper.ComputeIPM(cam)
		if err != nil {
			return nil, errors.Wrapf(err, "camera config %q", path)
		}
		ipms = append(ipms, ipm)
	}
	return ipms, nil
}

// cameraOutputDirs returns where each camera's warped images go. A single camera writes into
// dir; several cameras each get a subdirectory named after their calibration file.
func cameraOutputDirs(dir string, calibrationFiles []string) []string {
	if len(calibrationFiles) == 1 {
		return []string{dir}
	}
	labels := lo.Map(calibrationFiles, func(path string, _ int) string {
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	})
	if len(lo.Uniq(labels)) != len(labels) {
		labels = lo.Map(labels, func(_ string, idx int) string { return fmt.Sprintf("camera%d", idx) })
	}
	return lo.Map(labels, func(label string, _ int) string { return filepath.Join(dir, label) })
}

func processChunk(
	ctx context.Context,
	warper *transform.BatchWarper,
	chunk []imageset.FrameFiles,
	outDirs []string,
	workers int,
	logger logging.Logger,
) []transform.FrameResult {
	results := make([]transform.FrameResult, len(chunk))
	loaded := make([]transform.Frame, 0, len(chunk))
	loadedIdx := make([]int, 0, len(chunk))
	for i, files := range chunk {
		frame, err := imageset.Load(files)
		if err != nil {
			logger.Errorw("failed to load frame", "frame", files.Name, "error", err)
			results[i] = transform.FrameResult{Name: files.Name, Err: err}
			continue
		}
		loaded = append(loaded, frame)
		loadedIdx = append(loadedIdx, i)
	}

	for j, res := range warper.WarpBatch(ctx, loaded, workers) {
		if res.Err == nil {
			res.Err = writeFrame(res, outDirs)
			if res.Err != nil {
				logger.Errorw("failed to write frame", "frame", res.Name, "error", res.Err)
			}
		}
		res.Images = nil
		results[loadedIdx[j]] = res
	}
	return results
}

func writeFrame(res transform.FrameResult, outDirs []string) error {
	var errs error
	for idx, img := range res.Images {
		_, err := imageset.Write(outDirs[idx], res.Name, img)
		errs = multierr.Append(errs, err)
	}
	return errs
}
