// This tool prints the header of the passed NCW file and a summary of how
// its blocks are encoded.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/ncw"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const missingPathMessage = "You must pass the path of the NCW file to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

// blockStats counts blocks across all channels.
type blockStats struct {
	modes    map[ncw.BlockMode]int
	midSide  int
	float    int
	minWidth int
	maxWidth int
}

func (s *blockStats) add(h ncw.BlockHeader) {
	s.modes[h.Mode()]++

	if h.ChannelEncoding() == ncw.MidSide {
		s.midSide++
	}

	if h.SampleFormat() == ncw.Float {
		s.float++
	}

	if h.Mode() == ncw.ModeRaw {
		return
	}

	w := h.Width()
	if s.minWidth == 0 || w < s.minWidth {
		s.minWidth = w
	}

	if w > s.maxWidth {
		s.maxWidth = w
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	dec := ncw.NewDecoder(file)
	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return err
	}

	duration, err := dec.Duration()
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	h := dec.Header

	fmt.Fprintf(out, "File: %s (%s)\n", args[0], humanize.Bytes(uint64(info.Size())))
	fmt.Fprintf(out, "Signature: 0x%016x\n", h.Magic)
	fmt.Fprintf(out, "Channels: %d\n", h.Channels)
	fmt.Fprintf(out, "BitsPerSample: %d\n", h.BitsPerSample)
	p.Fprintf(out, "SampleRate: %d Hz\n", h.SampleRate)
	p.Fprintf(out, "Samples: %d per channel, %d total\n", h.NumSamples, h.TotalSamples())
	fmt.Fprintf(out, "Duration: %s\n", durafmt.Parse(duration).LimitFirstN(2))
	fmt.Fprintf(out, "BlocksOffset: %d\n", h.BlocksOffset)
	fmt.Fprintf(out, "DataOffset: %d\n", h.DataOffset)
	fmt.Fprintf(out, "DataSize: %s\n", humanize.Bytes(uint64(h.DataSize)))
	p.Fprintf(out, "BlockGroups: %d\n", dec.NumBlockGroups())

	stats := blockStats{modes: map[ncw.BlockMode]int{}}

	for i := 0; i < dec.NumBlockGroups(); i++ {
		headers, err := dec.ReadBlockHeaders(i)
		if err != nil {
			return err
		}

		for _, bh := range headers {
			stats.add(bh)
		}
	}

	fmt.Fprintln(out, "Blocks:")

	for _, mode := range []ncw.BlockMode{ncw.ModeDelta, ncw.ModeTruncated, ncw.ModeRaw} {
		p.Fprintf(out, "\t%s:\t%d\n", mode, stats.modes[mode])
	}

	if stats.maxWidth > 0 {
		fmt.Fprintf(out, "\tbit widths:\t%d..%d\n", stats.minWidth, stats.maxWidth)
	}

	if stats.midSide > 0 || stats.float > 0 {
		fmt.Fprintf(out, "Unsupported: %d mid/side, %d float block(s)\n", stats.midSide, stats.float)
	}

	return nil
}
