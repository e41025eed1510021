package transform

import (
	"context"
	"image"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.viam.com/birdseye/logging"
	"go.viam.com/birdseye/rimage"
)

// Frame is one scene instant: one image per configured camera, in camera order.
type Frame struct {
	Name   string
	Images []*rimage.Image
}

// FrameResult is the outcome of warping one Frame. Images is nil when Err is set.
type FrameResult struct {
	Name   string
	Images []*rimage.Image
	Err    error
}

// BatchWarper applies a fixed set of IPMs, one per camera, to frames of images.
// It holds no mutable state and may be shared between goroutines.
type BatchWarper struct {
	ipms     []Homography
	samplers []Homography
	size     image.Point
	opts     rimage.WarpOptions
	logger   logging.Logger
}

// NewBatchWarper precomputes the output to source mapping of every IPM.
func NewBatchWarper(ipms []Homography, size image.Point, opts rimage.WarpOptions, logger logging.Logger) (*BatchWarper, error) {
	if len(ipms) == 0 {
		return nil, errors.New("need at least one homography to warp with")
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid output size (%d,%d)", size.X, size.Y)
	}
	samplers := make([]Homography, len(ipms))
	for i, ipm := range ipms {
		inv, err := ipm.Inverse()
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		samplers[i] = inv
	}
	if logger == nil {
		logger = logging.NewBlankLogger("batch_warper")
	}
	return &BatchWarper{
		ipms:     append([]Homography(nil), ipms...),
		samplers: samplers,
		size:     size,
		opts:     opts,
		logger:   logger,
	}, nil
}

// OutputSize returns the size of every warped image.
func (bw *BatchWarper) OutputSize() image.Point {
	return bw.size
}

// NumCameras returns how many images each frame must hold.
func (bw *BatchWarper) NumCameras() int {
	return len(bw.ipms)
}

// WarpFrame warps images[i] with the IPM of camera i.
func (bw *BatchWarper) WarpFrame(images []*rimage.Image) ([]*rimage.Image, error) {
	if len(images) != len(bw.ipms) {
		return nil, NewShapeMismatchError(len(images), len(bw.ipms))
	}
	out := make([]*rimage.Image, len(images))
	for i, img := range images {
		warped, err := rimage.WarpImage(img, bw.samplers[i], bw.size, bw.opts)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		out[i] = warped
	}
	return out, nil
}

// WarpBatch warps frames using up to workers goroutines (GOMAXPROCS when workers <= 0).
// A failing frame does not stop the others; results are in the order of frames. Once ctx is
// done, frames that have not started yet are reported with the context's error.
func (bw *BatchWarper) WarpBatch(ctx context.Context, frames []Frame, workers int) []FrameResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]FrameResult, len(frames))

	var group errgroup.Group
	group.SetLimit(workers)
	for i := range frames {
		frame := frames[i]
		group.Go(func() error {
			results[i] = bw.warpOne(ctx, frame)
			return nil
		})
	}
	//nolint:errcheck
	group.Wait()
	return results
}

func (bw *BatchWarper) warpOne(ctx context.Context, frame Frame) FrameResult {
	res := FrameResult{Name: frame.Name}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	res.Images, res.Err = bw.WarpFrame(frame.Images)
	if res.Err != nil {
		bw.logger.Warnw("failed to warp frame", "frame", frame.Name, "error", res.Err)
		return res
	}
	bw.logger.Debugw("warped frame", "frame", frame.Name, "cameras", len(res.Images))
	return res
}

// BatchErrors combines the errors of all failed frames, each prefixed with its frame name.
// It returns nil when every frame succeeded.
func BatchErrors(results []FrameResult) error {
	var errs error
	for _, res := range results {
		if res.Err != nil {
			errs = multierr.Append(errs, errors.Wrapf(res.Err, "frame %q", res.Name))
		}
	}
	return errs
}
