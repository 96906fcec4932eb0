// This tool converts NCW files into WAV or AIFF files.
// Directories are walked for .ncw files and converted in parallel.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cwbudde/ncw"
	"github.com/dustin/go-humanize"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hako/durafmt"
	"github.com/remeh/sizedwaitgroup"
)

const (
	formatWAV  = "wav"
	formatAIFF = "aiff"

	wavFormatPCM = 1
)

var (
	errMissingPath   = errors.New("missing input path")
	errUnknownFormat = errors.New("unknown output format")
	errNoInputs      = errors.New("no .ncw files found")
	errOutputClash   = errors.New("inputs share an output file")
)

type options struct {
	outDir  string
	format  string
	strict  bool
	workers int
	logger  *log.Logger
}

type result struct {
	in       string
	out      string
	size     int64
	duration time.Duration
	err      error
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}

	log.Fatal(err)
}

func run(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("ncw2wav", flag.ContinueOnError)
	flagSet.SetOutput(out)

	outDir := flagSet.String("o", "", "output directory (defaults to the folder of each source file)")
	format := flagSet.String("format", formatWAV, "output format: wav or aiff")
	strict := flagSet.Bool("strict", false, "fail on samples that don't fit the bit depth instead of truncating them")
	workers := flagSet.Int("workers", runtime.NumCPU(), "number of files converted in parallel")
	verbose := flagSet.Bool("v", false, "log every converted file")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if flagSet.NArg() == 0 {
		return errMissingPath
	}

	opts := options{
		outDir:  *outDir,
		format:  strings.ToLower(*format),
		strict:  *strict,
		workers: max(*workers, 1),
		logger:  log.New(io.Discard, "", log.LstdFlags),
	}

	if opts.format != formatWAV && opts.format != formatAIFF {
		return fmt.Errorf("%w: %q", errUnknownFormat, *format)
	}

	if *verbose {
		opts.logger.SetOutput(os.Stderr)
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	inputs, err := collectInputs(flagSet.Args())
	if err != nil {
		return err
	}

	if err := checkOutputs(inputs, opts); err != nil {
		return err
	}

	results := convertAll(inputs, opts)

	return summarize(out, results)
}

// collectInputs expands directories into the .ncw files they contain.
func collectInputs(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".ncw") {
				files = append(files, p)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", path, err)
		}
	}

	if len(files) == 0 {
		return nil, errNoInputs
	}

	return files, nil
}

// checkOutputs fails if two inputs would be written to the same file, for
// example equally named files from different folders with -o.
func checkOutputs(inputs []string, opts options) error {
	var errs []error

	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		out := outputPath(in, opts)
		if prev, ok := seen[out]; ok {
			errs = append(errs, fmt.Errorf("%w: %s and %s -> %s", errOutputClash, prev, in, out))
			continue
		}

		seen[out] = in
	}

	return errors.Join(errs...)
}

func convertAll(inputs []string, opts options) []result {
	results := make([]result, len(inputs))

	wg := sizedwaitgroup.New(opts.workers)
	for i, in := range inputs {
		wg.Add()

		go func(i int, in string) {
			defer wg.Done()

			results[i] = convertFile(in, opts)
			if results[i].err != nil {
				opts.logger.Printf("failed to convert %s: %v", in, results[i].err)
				return
			}

			opts.logger.Printf("converted %s -> %s (%s)", in, results[i].out, humanize.Bytes(uint64(results[i].size)))
		}(i, in)
	}

	wg.Wait()

	return results
}

func convertFile(in string, opts options) result {
	res := result{in: in, out: outputPath(in, opts)}

	file, err := os.Open(in)
	if err != nil {
		res.err = err
		return res
	}
	defer file.Close()

	decoder := ncw.NewDecoder(file)

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		res.err = err
		return res
	}

	policy := ncw.Truncate
	if opts.strict {
		policy = ncw.Strict
	}

	if err := ncw.NarrowBuffer(buf, policy); err != nil {
		res.err = err
		return res
	}

	res.duration, err = decoder.Duration()
	if err != nil {
		res.err = err
		return res
	}

	write := writeWAV
	if opts.format == formatAIFF {
		write = writeAIFF
	}

	res.size, res.err = writeOutput(res.out, buf, write)

	return res
}

// writeOutput creates path and encodes buf into it. A file that couldn't be
// written completely is removed.
func writeOutput(path string, buf *audio.IntBuffer, write func(io.WriteSeeker, *audio.IntBuffer) error) (size int64, err error) {
	outFile, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	defer func() {
		if cerr := outFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}

		if err != nil {
			size = 0
			os.Remove(path)
		}
	}()

	if err := write(outFile, buf); err != nil {
		return 0, err
	}

	info, err := outFile.Stat()
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

func outputPath(in string, opts options) string {
	ext := ".wav"
	if opts.format == formatAIFF {
		ext = ".aif"
	}

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ext
	if opts.outDir == "" {
		return filepath.Join(filepath.Dir(in), base)
	}

	return filepath.Join(opts.outDir, base)
}

// writeWAV stores buf as PCM. 8 bit WAV samples are unsigned, so they are
// shifted up by 128.
func writeWAV(w io.WriteSeeker, buf *audio.IntBuffer) error {
	if buf.SourceBitDepth == 8 {
		buf = toUnsigned8(buf)
	}

	encoder := wav.NewEncoder(w, buf.Format.SampleRate, buf.SourceBitDepth, buf.Format.NumChannels, wavFormatPCM)

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close wav encoder: %w", err)
	}

	return nil
}

func writeAIFF(w io.WriteSeeker, buf *audio.IntBuffer) error {
	encoder := aiff.NewEncoder(w, buf.Format.SampleRate, buf.SourceBitDepth, buf.Format.NumChannels)

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write aiff data: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close aiff encoder: %w", err)
	}

	return nil
}

func toUnsigned8(buf *audio.IntBuffer) *audio.IntBuffer {
	out := &audio.IntBuffer{
		Format:         buf.Format,
		SourceBitDepth: buf.SourceBitDepth,
		Data:           make([]int, len(buf.Data)),
	}

	for i, v := range buf.Data {
		out.Data[i] = v + 128
	}

	return out
}

func summarize(out io.Writer, results []result) error {
	var (
		errs     []error
		written  int64
		duration time.Duration
		ok       int
	)

	for _, res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.in, res.err))
			continue
		}

		ok++
		written += res.size
		duration += res.duration
	}

	fmt.Fprintf(out, "Converted %d of %d file(s), %s written, %s of audio\n",
		ok, len(results), humanize.Bytes(uint64(written)), durafmt.Parse(duration).LimitFirstN(2))

	return errors.Join(errs...)
}
