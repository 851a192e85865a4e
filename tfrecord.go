package yolocrop

// TFRecord export of the crop dataset for TensorFlow image classification pipelines.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// LabelMapFileName is the name of the label map written next to the TFRecord files.
const LabelMapFileName = "label_map.pbtxt"

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// labelID is the id of a class in the label map and in image/class/label. Ids start at 1, as
// id 0 is reserved for the background class by TensorFlow tooling.
func labelID(classIndex int) int64 {
	return int64(classIndex) + 1
}

// toTFFeatures builds the classification features for a single crop.
func toTFFeatures(a CropArtifact) (TFFeatureMap, error) {
	img, format, err := decodeImageConfig(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %w", err)
	}

	imgData, err := readFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %w", err)
	}

	f := make(TFFeatureMap, 8)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = filepath.Base(a.Path)
	f["image/source_id"] = a.Stem
	f["image/encoded"] = imgData
	f["image/format"] = format
	f["image/class/label"] = []int64{labelID(a.ClassIndex)}
	f["image/class/text"] = []string{a.Class}

	return f, nil
}

// WriteClassificationTFRecords writes one TFRecord file per split to dir, named <split>.tfrecord
// (with a -xxxxx-of-yyyyy suffix per shard when numShards > 1), plus the label map for registry.
//
// Crops that cannot be read back are logged and left out.
func WriteClassificationTFRecords(dir string, registry *ClassRegistry, artifacts []CropArtifact,
	numShards int) error {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	bySplit := make(map[string][]CropArtifact)
	var splits []string
	for _, a := range artifacts {
		if _, ok := bySplit[a.Split]; !ok {
			splits = append(splits, a.Split)
		}
		bySplit[a.Split] = append(bySplit[a.Split], a)
	}

	for _, split := range splits {
		path := filepath.Join(dir, split+".tfrecord")
		n, err := writeTFRecordShards(path, bySplit[split], numShards)
		if err != nil {
			return err
		}
		Logf("Wrote %d examples to %s", n, path)
	}

	return WriteLabelMap(filepath.Join(dir, LabelMapFileName), registry)
}

// writeTFRecordShards does a streaming conversion, serialisation and file write of the crops to
// one or more shard files. Returns the number of examples written.
func writeTFRecordShards(recordFilePath string, data []CropArtifact, numShards int) (
	written int, err error) {

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}
	if numShards > len(data) {
		numShards = max(len(data), 1)
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one crop at a time.
	for i, a := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return written, err
				}
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return written, fmt.Errorf("failed to create shard at %q: %w", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatures(a)
		if err != nil {
			Logf("Failed to convert %q: %v", a.Path, err)
			continue
		}
		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return written, fmt.Errorf("failed to write example: %w", err)
		}
		written++
	}

	return written, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// WriteLabelMap writes the registry in the StringIntLabelMap prototxt format to path.
func WriteLabelMap(path string, registry *ClassRegistry) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for i, name := range registry.Names() {
		_, _ = fmt.Fprintf(w, "item {\n  name: %s\n  id: %d\n}\n", strconv.Quote(name), labelID(i))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write the label map %q: %w", path, err)
	}

	return nil
}
