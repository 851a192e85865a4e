// Crops the objects of a YOLO detection dataset into a per-class image classification dataset.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/yolocrop"
)

var (
	dataDirPath   string // The dataset root with data.yaml and one directory per split.
	manifestPath  string // The class manifest, defaults to <data>/data.yaml.
	outDirPath    string // The output root for the crops.
	splits        []string
	imageExts     []string
	synthesizeCls bool // Accept a manifest with only nc and generate class names.

	imageOutEncoding        string // The file type for crops.
	imageJPEGQuality        int    // The JPEG/WebP quality.
	imageWebPLossless       bool   // Lossless WebP.
	imageResizeLonger       int    // The target length for the longer side of each crop.
	imageResizeShorter      int    // The target length for the shorter side of each crop.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.

	numWorkers int // The number of label files processed concurrently.

	tfRecordDirPath string // Optional TFRecord export directory.
	numShardFiles   int    // The number of shard files per split.
	summaryJSONPath string // Optional JSON run summary.
	summaryHTMLPath string // Optional HTML chart of the run summary.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  -data <dir> -out <dir> [options]")
		_, _ = fmt.Fprintln(os.Stderr, "  <dir> must contain data.yaml and <split>/images, <split>/labels for every split")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Path arguments.
	flag.StringVar(&dataDirPath, "data", dataDirPath,
		"The `path` to the YOLO dataset root")
	flag.StringVar(&manifestPath, "manifest", manifestPath,
		"The `path` to the class manifest (default <data>/data.yaml)")
	flag.StringVar(&outDirPath, "out", outDirPath,
		"The `path` to the output root; crops go to <out>/<split>/<class>/<stem>_<line>.<ext>")
	splitList := flag.String("splits", strings.Join(yolocrop.DefaultSplits, ","),
		"Comma-separated `split` names to process, in order")
	extList := flag.String("image-exts", strings.Join(yolocrop.DefaultImageExts, ","),
		"Comma-separated source image `extensions`, tried in order")
	flag.BoolVar(&synthesizeCls, "synthesize-names", synthesizeCls,
		"Accept a manifest with only \"nc\" and name the classes class_0, class_1, ...")

	// Image processing arguments.
	flag.StringVar(&imageOutEncoding, "image-enc", "jpg",
		"The `encoding` for output images {jpg, png, webp}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 95,
		"The quality to use when encoding JPEG or lossy WebP [1, 100]")
	flag.BoolVar(&imageWebPLossless, "webp-lossless", imageWebPLossless,
		"Use lossless WebP encoding")
	flag.IntVar(&imageResizeLonger, "resize-longer", imageResizeLonger,
		"The target `length` for the longer side of each crop (zero to keep aspect ratio)")
	flag.IntVar(&imageResizeShorter, "resize-shorter", imageResizeShorter,
		"The target `length` for the shorter side of each crop (zero to keep aspect ratio)")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", "box",
		"The filter to use when downsampling a crop {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", "linear",
		"The filter to use when upsampling a crop {nearest, box, linear, gaussian, lanczos}")

	flag.IntVar(&numWorkers, "workers", 0,
		"The number of label files processed concurrently (0 selects 2x the number of CPUs)")

	// Output artifacts.
	flag.StringVar(&tfRecordDirPath, "tfrecord-out", tfRecordDirPath,
		"Optional `dir` for <split>.tfrecord files of the crops and "+yolocrop.LabelMapFileName)
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of TFRecord shard files per split")
	flag.StringVar(&summaryJSONPath, "summary-json", summaryJSONPath,
		"Optional `path` for a JSON run summary")
	flag.StringVar(&summaryHTMLPath, "summary-html", summaryHTMLPath,
		"Optional `path` for an HTML chart of crops per class")

	// Parse and validate flags.
	flag.Parse()

	if dataDirPath == "" || outDirPath == "" {
		printUsageAndExit("Missing data or output path argument")
	}
	dataDirPath = filepath.Clean(dataDirPath)
	outDirPath = filepath.Clean(outDirPath)
	if dataDirPath == outDirPath {
		printUsageAndExit("The data and output paths cannot be identical")
	}
	if manifestPath != "" {
		manifestPath = filepath.Clean(manifestPath)
	}

	splits = splitNonEmpty(*splitList)
	if len(splits) == 0 {
		printUsageAndExit("Invalid value for -splits")
	}
	for _, ext := range splitNonEmpty(*extList) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		imageExts = append(imageExts, ext)
	}
	if len(imageExts) == 0 {
		printUsageAndExit("Invalid value for -image-exts")
	}

	if _, err := yolocrop.ParseEncoding(imageOutEncoding); err != nil {
		printUsageAndExit(err)
	}
	if imageJPEGQuality < 1 || imageJPEGQuality > 100 {
		imageJPEGQuality = 95
		log.Print("Invalid JPEG quality, setting it to ", imageJPEGQuality)
	}
	if imageResizeLonger < 0 || imageResizeShorter < 0 {
		printUsageAndExit("Invalid resize target")
	}
	for _, f := range []string{imageDownsamplingFilter, imageUpsamplingFilter} {
		if _, err := yolocrop.ParseResampleFilter(f); err != nil {
			printUsageAndExit(err)
		}
	}
	if numShardFiles < 1 {
		printUsageAndExit("Invalid value for -num-shards")
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func main() {
	enc, _ := yolocrop.ParseEncoding(imageOutEncoding)

	converter, err := yolocrop.NewConverter(yolocrop.Config{
		DataRoot:     dataDirPath,
		ManifestPath: manifestPath,
		OutRoot:      outDirPath,
		Splits:       splits,
		ImageExts:    imageExts,
		Registry:     yolocrop.RegistryOptions{SynthesizeNames: synthesizeCls},
		Encode: yolocrop.EncodeOptions{
			Encoding:    enc,
			JPEGQuality: imageJPEGQuality,
			Lossless:    imageWebPLossless,
		},
		ResizeLonger:       imageResizeLonger,
		ResizeShorter:      imageResizeShorter,
		DownsamplingFilter: imageDownsamplingFilter,
		UpsamplingFilter:   imageUpsamplingFilter,
		Workers:            numWorkers,
	})
	if err != nil {
		var cfgErr *yolocrop.ConfigError
		if errors.As(err, &cfgErr) {
			log.Fatal("Cannot load the class manifest: ", err)
		}
		log.Fatal("Invalid configuration: ", err)
	}
	log.Printf("Loaded %d classes: %s", converter.Registry().Len(),
		strings.Join(converter.Registry().Names(), ", "))

	summary := converter.Run()
	summary.Log()

	if tfRecordDirPath != "" {
		err := yolocrop.WriteClassificationTFRecords(filepath.Clean(tfRecordDirPath),
			converter.Registry(), summary.Artifacts, numShardFiles)
		if err != nil {
			log.Fatal("TFRecord export failed: ", err)
		}
	}
	if summaryJSONPath != "" {
		if err := summary.WriteJSON(summaryJSONPath); err != nil {
			log.Fatal("Failed to write the summary: ", err)
		}
	}
	if summaryHTMLPath != "" {
		if err := summary.WriteHTML(summaryHTMLPath); err != nil {
			log.Fatal("Failed to write the summary chart: ", err)
		}
	}

	log.Print("Done -> ", outDirPath)
}
