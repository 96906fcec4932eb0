package ncw

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
)

// Decoder handles the decoding of NCW files.
// A Decoder owns its reader: it seeks freely and must not be shared between
// goroutines.
type Decoder struct {
	r *byteReader

	NumChans   uint16
	BitDepth   uint16
	SampleRate uint32
	// NumSamples is the number of samples per channel.
	NumSamples uint32

	// Header is available once ReadInfo succeeded.
	Header *FileHeader
	// BlockOffsets holds the start of every block-group relative to
	// Header.DataOffset.
	BlockOffsets []uint32

	err error
}

// NewDecoder creates a decoder for the passed NCW reader.
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{r: newByteReader(r)}
}

// ReadInfo reads the file header and the block offset table.
// This method is safe to call multiple times.
func (d *Decoder) ReadInfo() {
	if d == nil {
		return
	}

	d.err = d.readHeaders()
}

// Err returns the error recorded by the last ReadInfo call.
func (d *Decoder) Err() error {
	if d == nil {
		return ErrNilDecoder
	}

	return d.err
}

// IsValidFile verifies that the file header and offset table are readable
// and describe decodable audio.
func (d *Decoder) IsValidFile() bool {
	if d == nil {
		return false
	}

	d.err = d.readHeaders()
	if d.err != nil {
		return false
	}

	if d.NumSamples > 0 && len(d.BlockOffsets) == 0 {
		return false
	}

	return supportedBitDepth(int(d.BitDepth))
}

// Format returns the audio format of the decoded content.
func (d *Decoder) Format() *audio.Format {
	if d == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(d.NumChans),
		SampleRate:  int(d.SampleRate),
	}
}

// Duration returns the time duration of the decoded content.
func (d *Decoder) Duration() (time.Duration, error) {
	if err := d.readHeaders(); err != nil {
		return 0, err
	}

	return samplesDuration(int(d.NumSamples), int(d.SampleRate)), nil
}

// NumBlockGroups returns the number of block-groups listed in the offset
// table, or 0 if the headers can't be read.
func (d *Decoder) NumBlockGroups() int {
	if d.readHeaders() != nil {
		return 0
	}

	return len(d.BlockOffsets)
}

// ReadBlockHeaders returns the block headers of block-group i, one per
// channel, without decoding the payloads. Unsupported flags aren't
// rejected so callers can inspect any file.
func (d *Decoder) ReadBlockHeaders(i int) ([]BlockHeader, error) {
	if err := d.seekBlockGroup(i); err != nil {
		return nil, err
	}

	headers := make([]BlockHeader, d.NumChans)
	for c := range headers {
		start := d.r.offset()

		h, err := readBlockHeader(d.r)
		if err != nil {
			return nil, blockError(i, c, start, err)
		}

		next := d.r.offset() + int64(h.payloadSize(int(d.BitDepth)))
		if err := d.r.seek(next); err != nil {
			return nil, blockError(i, c, start, err)
		}

		headers[c] = h
	}

	return headers, nil
}

// DecodeBlockGroup decodes block-group i and returns SamplesPerBlock
// samples per channel, final block padding included.
func (d *Decoder) DecodeBlockGroup(i int) ([][]int32, error) {
	if err := d.seekBlockGroup(i); err != nil {
		return nil, err
	}

	channels := make([][]int32, d.NumChans)
	for c := range channels {
		start := d.r.offset()

		samples, err := readBlock(d.r, int(d.BitDepth))
		if err != nil {
			return nil, blockError(i, c, start, err)
		}

		channels[c] = samples
	}

	return channels, nil
}

// Samples decodes the whole file and returns the samples interleaved frame
// by frame. Its length is NumSamples*NumChans.
func (d *Decoder) Samples() ([]int32, error) {
	if err := d.readHeaders(); err != nil {
		return nil, err
	}

	capacity := int64(len(d.BlockOffsets)) * SamplesPerBlock
	if int64(d.NumSamples) > capacity {
		return nil, fmt.Errorf("%w: header declares %d samples per channel, %d block-groups hold at most %d",
			ErrSampleCountMismatch, d.NumSamples, len(d.BlockOffsets), capacity)
	}

	asm := newSampleAssembler(int(d.NumChans), int(d.NumSamples))

	for i := range d.BlockOffsets {
		channels, err := d.DecodeBlockGroup(i)
		if err != nil {
			return nil, err
		}

		for c, samples := range channels {
			asm.add(c, samples)
		}
	}

	return asm.interleave()
}

// FullPCMBuffer decodes the whole file into an int buffer. The samples keep
// the file's bit depth, reported as the buffer's SourceBitDepth.
func (d *Decoder) FullPCMBuffer() (*audio.IntBuffer, error) {
	samples, err := d.Samples()
	if err != nil {
		return nil, err
	}

	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(v)
	}

	return &audio.IntBuffer{
		Data:           data,
		Format:         d.Format(),
		SourceBitDepth: int(d.BitDepth),
	}, nil
}

// Rewind drops the parsed headers so the next call reads the file again
// from the start.
func (d *Decoder) Rewind() error {
	if d == nil {
		return ErrNilDecoder
	}

	if err := d.r.seek(0); err != nil {
		return fmt.Errorf("failed to seek back to the start: %w", err)
	}

	d.Header = nil
	d.BlockOffsets = nil
	d.NumChans = 0
	d.BitDepth = 0
	d.SampleRate = 0
	d.NumSamples = 0
	d.err = nil

	return nil
}

// String implements the Stringer interface.
func (d *Decoder) String() string {
	if d == nil || d.Header == nil {
		return "NCW (headers not read)"
	}

	return fmt.Sprintf("NCW %d ch, %d bit, %d Hz, %d samples, %d block-groups",
		d.NumChans, d.BitDepth, d.SampleRate, d.NumSamples, len(d.BlockOffsets))
}

// readHeaders is safe to call multiple times.
func (d *Decoder) readHeaders() error {
	if d == nil {
		return ErrNilDecoder
	}

	if d.Header != nil {
		return nil
	}

	if err := d.r.seek(0); err != nil {
		return err
	}

	h, err := readFileHeader(d.r)
	if err != nil {
		return err
	}

	if h.Channels == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidHeader)
	}

	offsets, err := readBlockOffsets(d.r, h)
	if err != nil {
		return err
	}

	d.Header = h
	d.BlockOffsets = offsets
	d.NumChans = h.Channels
	d.BitDepth = h.BitsPerSample
	d.SampleRate = h.SampleRate
	d.NumSamples = h.NumSamples

	return nil
}

func (d *Decoder) seekBlockGroup(i int) error {
	if err := d.readHeaders(); err != nil {
		return err
	}

	if i < 0 || i >= len(d.BlockOffsets) {
		return fmt.Errorf("block-group %d out of range [0, %d)", i, len(d.BlockOffsets))
	}

	pos := int64(d.Header.DataOffset) + int64(d.BlockOffsets[i])
	if err := d.r.seek(pos); err != nil {
		return fmt.Errorf("block-group %d: %w", i, err)
	}

	return nil
}

func blockError(group, channel int, offset int64, err error) error {
	return fmt.Errorf("block-group %d, channel %d at offset %d: %w", group, channel, offset, err)
}
