package yolocrop

// Conversion of YOLO detection datasets into per-class crop directories.

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// DefaultSplits are the split names of a Roboflow/YOLOv5 export.
var DefaultSplits = []string{"train", "valid", "test"}

// DefaultImageExts is the order in which source image extensions are tried.
var DefaultImageExts = []string{".jpg", ".png"}

// Config describes a conversion run.
//
// The dataset layout is <DataRoot>/<split>/images/<stem>.<ext> and
// <DataRoot>/<split>/labels/<stem>.txt, and the class manifest defaults to <DataRoot>/data.yaml.
type Config struct {
	DataRoot     string
	ManifestPath string // Defaults to <DataRoot>/data.yaml.
	OutRoot      string
	Splits       []string // Defaults to DefaultSplits.
	ImageExts    []string // Defaults to DefaultImageExts.

	Registry RegistryOptions
	Encode   EncodeOptions

	// Optional resizing of every crop. Disabled if both sides are zero.
	ResizeLonger       int
	ResizeShorter      int
	DownsamplingFilter string // Name accepted by ParseResampleFilter, defaults to "box".
	UpsamplingFilter   string // Name accepted by ParseResampleFilter, defaults to "linear".

	// Workers is the number of label files processed concurrently. Defaults to 2*NumCPU.
	Workers int
}

// Converter crops every labelled object of a YOLO dataset into <OutRoot>/<split>/<class>/.
type Converter struct {
	cfg        Config
	registry   *ClassRegistry
	downsample imaging.ResampleFilter
	upsample   imaging.ResampleFilter
}

// NewConverter validates cfg and loads the class registry. It fails with a *ConfigError if the
// manifest is unusable and touches nothing on disk.
func NewConverter(cfg Config) (*Converter, error) {
	if cfg.DataRoot == "" || cfg.OutRoot == "" {
		return nil, errors.New("data root and output root are required")
	}
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = filepath.Join(cfg.DataRoot, "data.yaml")
	}
	if len(cfg.Splits) == 0 {
		cfg.Splits = DefaultSplits
	}
	if len(cfg.ImageExts) == 0 {
		cfg.ImageExts = DefaultImageExts
	}
	if cfg.Encode.Encoding == "" {
		cfg.Encode.Encoding = JPEG
	}
	enc, err := ParseEncoding(string(cfg.Encode.Encoding))
	if err != nil {
		return nil, err
	}
	cfg.Encode.Encoding = enc
	if cfg.Encode.JPEGQuality < 1 || cfg.Encode.JPEGQuality > 100 {
		cfg.Encode.JPEGQuality = 95
	}
	if cfg.ResizeLonger < 0 || cfg.ResizeShorter < 0 {
		return nil, fmt.Errorf("invalid resize target %dx%d", cfg.ResizeLonger, cfg.ResizeShorter)
	}
	if cfg.DownsamplingFilter == "" {
		cfg.DownsamplingFilter = "box"
	}
	if cfg.UpsamplingFilter == "" {
		cfg.UpsamplingFilter = "linear"
	}
	downsample, err := ParseResampleFilter(cfg.DownsamplingFilter)
	if err != nil {
		return nil, err
	}
	upsample, err := ParseResampleFilter(cfg.UpsamplingFilter)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2 * runtime.NumCPU()
	}

	registry, err := LoadClassRegistry(cfg.ManifestPath, cfg.Registry)
	if err != nil {
		return nil, err
	}

	return &Converter{cfg: cfg, registry: registry, downsample: downsample, upsample: upsample}, nil
}

// Registry returns the loaded class registry.
func (c *Converter) Registry() *ClassRegistry {
	return c.registry
}

// labelTask is one label file of one split.
type labelTask struct {
	split     string
	labelPath string
	imageDir  string
}

type fileOutcome int

const (
	fileProcessed fileOutcome = iota
	fileNoImage
	fileParseFailed
)

// fileResult is the outcome of processing one label file.
type fileResult struct {
	outcome      fileOutcome
	artifacts    []CropArtifact
	degenerate   int
	malformed    int
	invalidClass int
	writeFailed  int
}

// Run converts all splits. Failures of single files or records are logged and counted in the
// returned summary; they never stop the run. A split without a labels directory is skipped.
func (c *Converter) Run() *Summary {
	summary := newSummary(c.cfg.Splits, c.registry.Names())

	var tasks []labelTask
	for _, split := range c.cfg.Splits {
		splitDir := filepath.Join(c.cfg.DataRoot, split)
		labelFiles, err := filesByExtInDir(filepath.Join(splitDir, "labels"), ".txt")
		if err != nil {
			warnf("skipping split %q: %v", split, err)
			continue
		}
		Logf("Split %q: %d label files", split, len(labelFiles))

		imageDir := filepath.Join(splitDir, "images")
		for _, path := range labelFiles {
			tasks = append(tasks, labelTask{split: split, labelPath: path, imageDir: imageDir})
		}
	}

	numTasks := c.cfg.Workers
	if len(tasks) < numTasks {
		numTasks = len(tasks)
	}
	workQueue := make(chan labelTask, 2*numTasks)
	results := make(chan fileResult, 2*numTasks)

	// Process label files concurrently from a work queue.
	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for t := range workQueue {
				results <- c.processLabelFile(t)
			}
		}()
	}

	// Collect results in a single goroutine so the summary needs no locking.
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range results {
			summary.add(r)
		}
	}()

	for _, t := range tasks {
		workQueue <- t
	}
	close(workQueue)

	wg.Wait()
	close(results)
	<-collected

	summary.sortArtifacts()
	return summary
}

// processLabelFile crops every valid box of one label file.
func (c *Converter) processLabelFile(t labelTask) fileResult {
	var res fileResult

	_, stem, _, err := splitPath(t.labelPath)
	if err != nil {
		warnf("skipping %q: %v", t.labelPath, err)
		res.outcome = fileParseFailed
		return res
	}

	img, _, err := OpenSourceImage(t.imageDir, stem, c.cfg.ImageExts)
	if err != nil {
		warnf("skipping %q: %v", t.labelPath, err)
		res.outcome = fileNoImage
		return res
	}

	content, err := readFile(t.labelPath)
	if err != nil {
		Logf("Error while reading, skipping %q: %v", t.labelPath, err)
		res.outcome = fileParseFailed
		return res
	}
	records, malformed, err := readAnnotations(t.labelPath, string(content))
	if err != nil {
		Logf("Error while parsing, skipping %q: %v", t.labelPath, err)
		res.outcome = fileParseFailed
		return res
	}
	res.malformed = malformed

	bounds := img.Bounds()
	for _, r := range records {
		class, ok := c.registry.Name(r.Class)
		if !ok {
			warnf("%s:%d: class index %d not in manifest (%d classes)",
				t.labelPath, r.Ordinal+1, r.Class, c.registry.Len())
			res.invalidClass++
			continue
		}

		box, ok := ToPixelBox(r, bounds.Dx(), bounds.Dy())
		if !ok {
			res.degenerate++
			continue
		}

		artifact, err := c.writeRecordCrop(img, box, t.split, class, stem, r)
		if err != nil {
			Logf("Error: %v", err)
			res.writeFailed++
			continue
		}
		res.artifacts = append(res.artifacts, artifact)
	}

	return res
}

func (c *Converter) writeRecordCrop(img image.Image, box PixelBox, split, class, stem string,
	r Record) (CropArtifact, error) {

	var crop image.Image = ExtractCrop(img, box)
	if c.cfg.ResizeLonger > 0 || c.cfg.ResizeShorter > 0 {
		crop, _, _ = resizeImage(crop, c.cfg.ResizeLonger, c.cfg.ResizeShorter,
			c.downsample, c.upsample)
	}

	path := CropPath(c.cfg.OutRoot, split, class, stem, r.Ordinal, c.cfg.Encode.Encoding)
	if err := WriteCrop(path, crop, c.cfg.Encode); err != nil {
		return CropArtifact{}, err
	}

	return CropArtifact{
		Split:      split,
		Class:      class,
		ClassIndex: r.Class,
		Stem:       stem,
		Ordinal:    r.Ordinal,
		Path:       path,
		Box:        box,
		Width:      crop.Bounds().Dx(),
		Height:     crop.Bounds().Dy(),
	}, nil
}
