// Command gridlens finds a 9x9 puzzle grid in a photo, prints the recognized
// digits and writes the photo with the digits painted back in red.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gridlens/internal/classify"
	"gridlens/internal/classify/onnxdigit"
	"gridlens/internal/classify/tessdigit"
	"gridlens/internal/config"
	"gridlens/internal/detect"
	"gridlens/internal/imageio"
	"gridlens/internal/pipeline"
	"gridlens/internal/version"
)

func main() {
	input := flag.String("i", "", "Path to input photo (JPEG, PNG, GIF, BMP or TIFF)")
	output := flag.String("o", "", "Path to output image (default <input>_output<ext>)")
	configPath := flag.String("config", "", "JSON config file overlaying the defaults")
	engine := flag.String("engine", "onnx", "Digit classifier: onnx or tesseract")
	model := flag.String("model", "classifier.onnx", "ONNX digit model")
	ortLib := flag.String("ort", "", "onnxruntime shared library (default: runtime search path)")
	dumpDir := flag.String("dump", "", "Directory for the rectified square and cell bitmaps")
	quiet := flag.Bool("q", false, "Suppress stage progress")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *input == "" {
		fmt.Println("Usage: gridlens -i <photo> [-o <output>] [-config <file>] [-engine onnx|tesseract] [-model <file>] [-dump <dir>]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	clf, release, err := newClassifier(*engine, *model, *ortLib, cfg.ClassifierInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create classifier: %v\n", err)
		os.Exit(1)
	}
	// os.Exit skips deferred calls, so failures release explicitly.
	var once sync.Once
	closeClassifier := func() { once.Do(release) }
	defer closeClassifier()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if *quiet {
		logger.SetOutput(io.Discard)
	}
	p, err := pipeline.New(cfg, detect.NewDetector(cfg.Detect), clf, pipeline.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		closeClassifier()
		os.Exit(1)
	}

	img, err := imageio.LoadGray(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		closeClassifier()
		os.Exit(1)
	}

	res, err := p.Run(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		closeClassifier()
		os.Exit(1)
	}

	fmt.Print(res.Grid.String())

	if *dumpDir != "" {
		if err := dump(*dumpDir, res.Extraction); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write dump: %v\n", err)
		}
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutput(*input)
	}
	if err := imageio.Save(outPath, res.Overlay); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		closeClassifier()
		os.Exit(1)
	}
	fmt.Printf("Saved overlay to %s\n", outPath)
}

func newClassifier(engine, model, ortLib string, inputSize int) (classify.Classifier, func(), error) {
	switch engine {
	case "onnx":
		opts := onnxdigit.DefaultOptions()
		opts.ModelPath = model
		opts.LibraryPath = ortLib
		opts.InputSize = inputSize
		c, err := onnxdigit.New(opts)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case "tesseract":
		c, err := tessdigit.New(3)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q", engine)
	}
}

func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_output" + ext
}

func dump(dir string, ex *pipeline.Extraction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := imageio.Save(filepath.Join(dir, "rectified.png"), ex.Rectification.Image); err != nil {
		return err
	}
	if err := imageio.Save(filepath.Join(dir, "binary.png"), ex.Binary); err != nil {
		return err
	}
	for _, c := range ex.Grid.Cells {
		if !c.Filled {
			continue
		}
		name := fmt.Sprintf("cell_%d_%d_label%d.png", c.Row, c.Col, c.Label)
		if err := imageio.Save(filepath.Join(dir, name), c.Bitmap); err != nil {
			return err
		}
	}
	fmt.Printf("Wrote %d cell bitmaps to %s\n", ex.Grid.Filled(), dir)
	return nil
}
