package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/ncw/internal/ncwtest"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

func writeNCW(t *testing.T, dir, name string, f ncwtest.File) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func stereoFile(bitDepth uint16) (ncwtest.File, [][]int32) {
	channels := [][]int32{
		ncwtest.Ramp(700, -300, 1),
		ncwtest.Ramp(700, 300, -1),
	}

	return ncwtest.RawFile(bitDepth, 44100, channels), channels
}

func assertInterleaved(t *testing.T, buf *audio.IntBuffer, channels [][]int32) {
	t.Helper()

	numChans := len(channels)
	if buf.Format.NumChannels != numChans {
		t.Fatalf("channels=%d, want %d", buf.Format.NumChannels, numChans)
	}

	want := len(channels[0]) * numChans
	if len(buf.Data) != want {
		t.Fatalf("got %d samples, want %d", len(buf.Data), want)
	}

	for i, v := range buf.Data {
		expected := int(channels[i%numChans][i/numChans])
		if v != expected {
			t.Fatalf("sample[%d]=%d, want %d", i, v, expected)
		}
	}
}

// wavChunkSizes walks the RIFF chunks of a WAV file.
func wavChunkSizes(t *testing.T, path string) map[[4]byte]int {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	parser := riff.New(file)

	id, _, err := parser.IDnSize()
	if err != nil {
		t.Fatal(err)
	}

	if id != riff.RiffID {
		t.Fatalf("id=%q, want %q", id, riff.RiffID)
	}

	var format [4]byte
	if err := binary.Read(file, binary.BigEndian, &format); err != nil {
		t.Fatal(err)
	}

	if format != riff.WavFormatID {
		t.Fatalf("format=%q, want %q", format, riff.WavFormatID)
	}

	sizes := map[[4]byte]int{}

	for {
		chunk, err := parser.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			t.Fatal(err)
		}

		sizes[chunk.ID] = chunk.Size
		chunk.Drain()
	}

	return sizes
}

func TestRunConvertsToWAV(t *testing.T) {
	dir := t.TempDir()
	f, channels := stereoFile(16)
	in := writeNCW(t, dir, "loop.ncw", f)

	var out bytes.Buffer
	if err := run([]string{in}, &out); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "Converted 1 of 1 file(s)") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	sizes := wavChunkSizes(t, filepath.Join(dir, "loop.wav"))
	if sizes[riff.FmtID] != 16 {
		t.Fatalf("fmt chunk size=%d, want 16", sizes[riff.FmtID])
	}

	// 700 frames of two 16 bit samples
	if sizes[riff.DataFormatID] != 2800 {
		t.Fatalf("data chunk size=%d, want 2800", sizes[riff.DataFormatID])
	}

	file, err := os.Open(filepath.Join(dir, "loop.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		t.Fatalf("expected a valid wav file")
	}

	if decoder.SampleRate != 44100 || decoder.BitDepth != 16 {
		t.Fatalf("unexpected format %d Hz, %d bit", decoder.SampleRate, decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}

	assertInterleaved(t, buf, channels)
}

func TestRunConvertsToAIFF(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	f, channels := stereoFile(24)
	in := writeNCW(t, dir, "pad.ncw", f)

	var out bytes.Buffer
	if err := run([]string{"-format", "aiff", "-o", outDir, in}, &out); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(filepath.Join(outDir, "pad.aif"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	decoder := aiff.NewDecoder(file)

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}

	if decoder.SampleRate != 44100 || decoder.BitDepth != 24 {
		t.Fatalf("unexpected format %d Hz, %d bit", decoder.SampleRate, decoder.BitDepth)
	}

	assertInterleaved(t, buf, channels)
}

func TestRunWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "kit")

	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	f, _ := stereoFile(16)
	writeNCW(t, dir, "a.ncw", f)
	writeNCW(t, sub, "b.NCW", f)
	writeNCW(t, sub, "notes.txt", f)

	var out bytes.Buffer
	if err := run([]string{"-workers", "2", dir}, &out); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.String(), "Converted 2 of 2 file(s)") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	for _, path := range []string{filepath.Join(dir, "a.wav"), filepath.Join(sub, "b.wav")} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}

	if _, err := os.Stat(filepath.Join(sub, "notes.wav")); !os.IsNotExist(err) {
		t.Fatalf("expected non-ncw files to be skipped")
	}
}

func TestRunReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good, _ := stereoFile(16)
	writeNCW(t, dir, "good.ncw", good)

	if err := os.WriteFile(filepath.Join(dir, "bad.ncw"), []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer

	err := run([]string{dir}, &out)
	if err == nil {
		t.Fatalf("expected an error for the broken file")
	}

	if !strings.Contains(err.Error(), "bad.ncw") {
		t.Fatalf("expected the failing path in %q", err)
	}

	if !strings.Contains(out.String(), "Converted 1 of 2 file(s)") {
		t.Fatalf("unexpected summary %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.wav")); !os.IsNotExist(err) {
		t.Fatalf("expected no output for the broken file, got %v", err)
	}
}

func TestRunStrictRejectsOutOfRangeSamples(t *testing.T) {
	dir := t.TempDir()

	// a 13 bit field can hold values no 8 bit sample can
	f := ncwtest.BuildFile(8, 22050, [][]int32{ncwtest.Ramp(512, 0, 1)}, func(samples []int32) ncwtest.Block {
		return ncwtest.TruncatedBlock(13, samples)
	})
	in := writeNCW(t, dir, "hot.ncw", f)

	var out bytes.Buffer

	err := run([]string{"-strict", in}, &out)
	if err == nil {
		t.Fatalf("expected strict conversion to fail")
	}

	if err := run([]string{in}, &out); err != nil {
		t.Fatalf("expected truncating conversion to succeed, got %v", err)
	}
}

func TestRunArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no path", args: nil, wantErr: errMissingPath},
		{name: "unknown format", args: []string{"-format", "flac", "x.ncw"}, wantErr: errUnknownFormat},
		{name: "empty directory", args: []string{t.TempDir()}, wantErr: errNoInputs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &bytes.Buffer{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	err := run([]string{filepath.Join(t.TempDir(), "missing.ncw")}, &bytes.Buffer{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestToUnsigned8(t *testing.T) {
	in := &audio.IntBuffer{Data: []int{-128, -1, 0, 127}, SourceBitDepth: 8}

	got := toUnsigned8(in)

	want := []int{0, 127, 128, 255}
	for i := range want {
		if got.Data[i] != want[i] {
			t.Fatalf("sample[%d]=%d, want %d", i, got.Data[i], want[i])
		}
	}

	if in.Data[0] != -128 {
		t.Fatalf("expected the input buffer to stay untouched")
	}
}

func TestRunRejectsClashingOutputs(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	f, _ := stereoFile(16)

	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}

		writeNCW(t, filepath.Join(dir, sub), "kick.ncw", f)
	}

	err := run([]string{"-o", outDir, dir}, &bytes.Buffer{})
	if !errors.Is(err, errOutputClash) {
		t.Fatalf("expected errOutputClash, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "kick.wav")); !os.IsNotExist(err) {
		t.Fatalf("expected nothing to be written, got %v", err)
	}

	// without -o every file lands next to its source
	if err := run([]string{dir}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
}

func TestWriteOutputRemovesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.wav")
	errEncode := errors.New("encoder failed")

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           []int{1, 2, 3},
	}

	size, err := writeOutput(path, buf, func(w io.WriteSeeker, _ *audio.IntBuffer) error {
		if _, err := w.Write([]byte("RIFF")); err != nil {
			return err
		}

		return errEncode
	})
	if !errors.Is(err, errEncode) {
		t.Fatalf("expected the encoder error, got %v", err)
	}

	if size != 0 {
		t.Fatalf("size=%d, want 0", size)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, got %v", path, err)
	}
}

func TestWriteOutputReportsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.wav")

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           []int{1, -1, 2, -2},
	}

	size, err := writeOutput(path, buf, writeWAV)
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	if size != info.Size() || size == 0 {
		t.Fatalf("size=%d, want %d", size, info.Size())
	}
}
