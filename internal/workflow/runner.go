package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/measurement-maps/internal/config"
	"github.com/ironsheep/measurement-maps/internal/imaging"
	"github.com/ironsheep/measurement-maps/internal/measure"
	"github.com/ironsheep/measurement-maps/internal/monitoring"
	"github.com/ironsheep/measurement-maps/internal/regions"
	"github.com/ironsheep/measurement-maps/internal/segment"
)

// Report summarises the run of one image.
type Report struct {
	// RunID identifies this run in log lines.
	RunID string `json:"run_id"`

	// Path is the input image.
	Path string `json:"path"`

	// OutputDir is the folder outputs were written to.
	OutputDir string `json:"output_dir,omitempty"`

	// Channels is the number of channels in the image.
	Channels int `json:"channels"`

	// RawRegions and Regions count the components before and after area
	// filtering.
	RawRegions int `json:"raw_regions"`
	Regions    int `json:"regions"`

	// Outputs lists every file written, in write order.
	Outputs []string `json:"outputs"`

	// Conditions lists non-fatal problems such as an empty region set or
	// unparsable region names.
	Conditions []string `json:"conditions,omitempty"`

	// Error is set by RunBatch when the image failed.
	Error string `json:"error,omitempty"`
}

// Runner executes the segment, extract, measure and write sequence on image
// files. A Runner is safe for concurrent use; every run allocates its own
// buffers.
type Runner struct {
	cfg       *config.Config
	kinds     []measure.Kind
	engine    *measure.Engine
	segmenter *segment.Segmenter
	names     map[int]string
	cache     *imaging.ImageCache
}

// New validates cfg and prepares a runner. Images are loaded through cache;
// a nil cache gives the runner its own.
func New(cfg *config.Config, cache *imaging.ImageCache) (*Runner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	var names map[int]string
	if cfg.Measurement.NamesFile != "" {
		names, err = LoadNames(cfg.Measurement.NamesFile)
		if err != nil {
			return nil, err
		}
	}

	if cache == nil {
		cache = imaging.NewImageCache()
	}

	return &Runner{
		cfg:       cfg,
		kinds:     kinds,
		engine:    engine,
		segmenter: segment.New(cfg.Segmentation.MedianRadius),
		names:     names,
		cache:     cache,
	}, nil
}

// Run processes one image and writes its outputs to the configured folder
// next to it.
//
// Segmentation failures are fatal for the image. An empty region set is not:
// the maps are written all zero and the condition is listed in the report.
// ctx is checked before the image is loaded and between channels.
func (r *Runner) Run(ctx context.Context, path string) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rep := &Report{RunID: uuid.NewString(), Path: path}
	monitoring.Debugf("run %s: %s", rep.RunID, path)

	chans, err := r.cache.Load(path)
	if err != nil {
		return rep, err
	}
	rep.Channels = len(chans)

	ref, err := imaging.Channel(chans, r.cfg.Segmentation.ReferenceChannel)
	if err != nil {
		return rep, fmt.Errorf("reference channel: %w", err)
	}
	measured, err := r.channelIDs(len(chans))
	if err != nil {
		return rep, err
	}

	mask, err := r.segmenter.Segment(ref)
	if err != nil {
		return rep, fmt.Errorf("segmenting %s: %w", path, err)
	}

	res, err := regions.Extract(mask, r.cfg.Segmentation.MinArea)
	if err != nil {
		return rep, fmt.Errorf("extracting regions: %w", err)
	}
	rep.RawRegions, rep.Regions = res.Raw, len(res.Regions)

	dir, base := imaging.SplitPath(path)
	monitoring.Logf("%s: %d regions found, %d kept (area > %d) [run %s]", base, res.Raw, len(res.Regions), res.MinArea, rep.RunID)
	if cond := res.Condition(); cond != nil {
		monitoring.Logf("%s: %v", base, cond)
		rep.Conditions = append(rep.Conditions, cond.Error())
	}

	regs := res.Regions
	if r.names != nil {
		regs = Rename(regs, r.names)
	}

	rep.OutputDir = filepath.Join(dir, r.cfg.Output.Folder)
	if err := os.MkdirAll(rep.OutputDir, 0755); err != nil {
		return rep, fmt.Errorf("failed to create output folder: %w", err)
	}

	if err := r.writeRegions(rep, base, regs, ref, mask); err != nil {
		return rep, err
	}

	for _, id := range measured {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		src := chans[id-1]
		if err := r.measureChannel(rep, base, id, src, regs); err != nil {
			return rep, fmt.Errorf("channel %d: %w", id, err)
		}
	}
	return rep, nil
}

// RunBatch runs every image with at most cfg.Processing.Workers images in
// flight. A failing image is recorded in its report and does not stop the
// others; only context cancellation ends the batch early. Reports are
// returned in input order.
func (r *Runner) RunBatch(ctx context.Context, paths []string) ([]*Report, error) {
	reports := make([]*Report, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Processing.Workers)

	for i, path := range paths {
		g.Go(func() error {
			defer r.cache.Evict(path)

			rep, err := r.Run(gctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				monitoring.Logf("%s failed: %v", path, err)
				if rep == nil {
					rep = &Report{RunID: uuid.NewString(), Path: path}
				}
				rep.Error = err.Error()
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

func (r *Runner) channelIDs(n int) ([]int, error) {
	if len(r.cfg.Measurement.Channels) == 0 {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i + 1
		}
		return ids, nil
	}
	for _, id := range r.cfg.Measurement.Channels {
		if id > n {
			return nil, fmt.Errorf("channel %d out of range (image has %d channels)", id, n)
		}
	}
	return r.cfg.Measurement.Channels, nil
}

func (r *Runner) writeRegions(rep *Report, base string, regs []regions.Region, ref, mask *imaging.Buffer) error {
	path := filepath.Join(rep.OutputDir, base+"_regions.csv")
	if err := writeFile(path, func(f *os.File) error { return regions.WriteCSV(f, regs) }); err != nil {
		return err
	}
	rep.Outputs = append(rep.Outputs, path)

	if r.cfg.Output.LabelMap {
		path := filepath.Join(rep.OutputDir, base+"_labels.tif")
		labels := regions.LabelMap(regs, mask.Width, mask.Height, mask.Planes)
		if err := imaging.SaveTIFF(path, labels); err != nil {
			return err
		}
		rep.Outputs = append(rep.Outputs, path)
	}

	if r.cfg.Output.Outlines {
		path := filepath.Join(rep.OutputDir, base+"_outlines.png")
		overlay := regions.Outlines(ref, regs, 0, r.cfg.Output.OutlineColor, true)
		if err := imaging.SaveImage(path, overlay); err != nil {
			return err
		}
		rep.Outputs = append(rep.Outputs, path)
	}
	return nil
}

func (r *Runner) measureChannel(rep *Report, base string, id int, src *imaging.Buffer, regs []regions.Region) error {
	out, err := r.engine.RenderAll(src, regs, r.kinds)
	if err != nil {
		return err
	}
	for _, c := range out.Conditions {
		monitoring.Debugf("%s c%d: %v", base, id, c)
		rep.Conditions = append(rep.Conditions, fmt.Sprintf("c%d: %v", id, c))
	}

	prefix := fmt.Sprintf("c%d_%s", id, base)
	for i, k := range out.Kinds {
		path := filepath.Join(rep.OutputDir, prefix+"_"+k.Ident()+".tif")
		m := out.Maps[i]
		if r.cfg.Output.Float64Maps {
			m = m.WithDepth(imaging.Depth64F)
		}
		if err := imaging.SaveTIFF(path, m); err != nil {
			return err
		}
		rep.Outputs = append(rep.Outputs, path)
		monitoring.Debugf("wrote %s", path)

		if r.cfg.Output.Preview {
			path := filepath.Join(rep.OutputDir, prefix+"_"+k.Ident()+".png")
			if err := imaging.SavePreview(path, out.Maps[i], 0, r.cfg.Output.PreviewMaxSide); err != nil {
				return err
			}
			rep.Outputs = append(rep.Outputs, path)
		}
	}

	path := filepath.Join(rep.OutputDir, prefix+"_Table.csv")
	if err := writeFile(path, func(f *os.File) error { return out.Table.WriteCSV(f) }); err != nil {
		return err
	}
	rep.Outputs = append(rep.Outputs, path)

	if r.cfg.Output.Histograms {
		for _, k := range out.Kinds {
			path := filepath.Join(rep.OutputDir, prefix+"_"+k.Ident()+"_hist.png")
			err := out.Table.SaveHistogram(path, k, measure.DefaultHistogramBins)
			if errors.Is(err, measure.ErrNoFiniteValues) {
				monitoring.Debugf("%s: skipping histogram: %v", prefix, err)
				continue
			}
			if err != nil {
				return err
			}
			rep.Outputs = append(rep.Outputs, path)
		}
	}
	return nil
}

// writeFile creates path and fills it with write, reporting close errors.
func writeFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
