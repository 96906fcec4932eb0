// Package ncwtest builds synthetic NCW files for tests.
package ncwtest

import (
	"encoding/binary"
)

const (
	headerSize      = 120
	blockHeaderSize = 16
	samplesPerBlock = 512

	MagicV1    uint64 = 0x01A89ED631010000
	MagicV2    uint64 = 0x01A89ED630010000
	BlockMagic uint32 = 0x160C9A3E

	FlagMidSide uint16 = 1 << 0
	FlagFloat   uint16 = 1 << 1

	// Pad fills the unused tail of a final block.
	Pad int32 = 0x55
)

// Block is one channel block of a block-group.
type Block struct {
	Magic     uint32
	BaseValue int32
	Bits      int16
	Flags     uint16
	Payload   []byte
}

// File describes a synthetic NCW file. Groups is indexed [group][channel].
type File struct {
	Magic         uint64
	Channels      uint16
	BitsPerSample uint16
	SampleRate    uint32
	NumSamples    uint32
	Groups        [][]Block
}

// Bytes serialises the file. The offset table starts right after the
// header and holds one entry per group plus a trailing end offset, so the
// table spans len(Groups)+1 slots.
func (f File) Bytes() []byte {
	magic := f.Magic
	if magic == 0 {
		magic = MagicV1
	}

	var data []byte

	offsets := make([]uint32, 0, len(f.Groups)+1)
	for _, group := range f.Groups {
		offsets = append(offsets, uint32(len(data)))
		for _, b := range group {
			data = append(data, b.bytes()...)
		}
	}

	offsets = append(offsets, uint32(len(data)))

	blocksOffset := uint32(headerSize)
	dataOffset := blocksOffset + uint32(4*len(offsets))

	out := make([]byte, headerSize, int(dataOffset)+len(data))
	binary.BigEndian.PutUint64(out[0:8], magic)
	binary.LittleEndian.PutUint16(out[8:10], f.Channels)
	binary.LittleEndian.PutUint16(out[10:12], f.BitsPerSample)
	binary.LittleEndian.PutUint32(out[12:16], f.SampleRate)
	binary.LittleEndian.PutUint32(out[16:20], f.NumSamples)
	binary.LittleEndian.PutUint32(out[20:24], blocksOffset)
	binary.LittleEndian.PutUint32(out[24:28], dataOffset)
	binary.LittleEndian.PutUint32(out[28:32], uint32(len(data)))

	for _, o := range offsets {
		out = binary.LittleEndian.AppendUint32(out, o)
	}

	return append(out, data...)
}

func (b Block) bytes() []byte {
	magic := b.Magic
	if magic == 0 {
		magic = BlockMagic
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(b.Payload))
	binary.BigEndian.PutUint32(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(b.BaseValue))
	binary.LittleEndian.PutUint16(out[8:10], uint16(b.Bits))
	binary.LittleEndian.PutUint16(out[10:12], b.Flags)

	return append(out, b.Payload...)
}

// Pack packs values LSB first using width bits each.
func Pack(values []int32, width int) []byte {
	out := make([]byte, (len(values)*width+7)/8)

	bit := 0
	for _, v := range values {
		u := uint64(uint32(v))
		for i := 0; i < width; i++ {
			if u&(1<<i) != 0 {
				out[bit/8] |= 1 << (bit % 8)
			}
			bit++
		}
	}

	return out
}

// RawBlock stores samples uncompressed at bitsPerSample, padded to a full
// block with Pad.
func RawBlock(bitsPerSample int, samples []int32) Block {
	size := bitsPerSample / 8
	payload := make([]byte, 0, size*samplesPerBlock)

	for _, v := range padded(samples, Pad) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		payload = append(payload, b[:size]...)
	}

	return Block{Payload: payload}
}

// TruncatedBlock packs samples at width bits, padded to a full block.
func TruncatedBlock(width int, samples []int32) Block {
	return Block{
		Bits:    int16(-width),
		Payload: Pack(padded(samples, 0), width),
	}
}

// DeltaBlock stores base and the packed deltas. Missing deltas are zero.
func DeltaBlock(base int32, width int, deltas []int32) Block {
	return Block{
		BaseValue: base,
		Bits:      int16(width),
		Payload:   Pack(padded(deltas, 0), width),
	}
}

// DeltaBlockFromSamples delta encodes samples at width bits. Padding
// repeats the last sample.
func DeltaBlockFromSamples(width int, samples []int32) Block {
	full := padded(samples, 0)
	if len(samples) > 0 {
		for i := len(samples); i < samplesPerBlock; i++ {
			full[i] = samples[len(samples)-1]
		}
	}

	deltas := make([]int32, samplesPerBlock)
	for i := 1; i < samplesPerBlock; i++ {
		deltas[i-1] = full[i] - full[i-1]
	}

	return DeltaBlock(full[0], width, deltas)
}

// RawFile lays out per channel samples in raw blocks. Every channel must
// hold the same number of samples.
func RawFile(bitsPerSample uint16, sampleRate uint32, channels [][]int32) File {
	return BuildFile(bitsPerSample, sampleRate, channels, func(samples []int32) Block {
		return RawBlock(int(bitsPerSample), samples)
	})
}

// BuildFile splits every channel into blocks of 512 samples and encodes
// each one with encode.
func BuildFile(bitsPerSample uint16, sampleRate uint32, channels [][]int32, encode func([]int32) Block) File {
	f := File{
		Channels:      uint16(len(channels)),
		BitsPerSample: bitsPerSample,
		SampleRate:    sampleRate,
	}

	if len(channels) == 0 {
		return f
	}

	n := len(channels[0])
	f.NumSamples = uint32(n)

	for start := 0; start < n; start += samplesPerBlock {
		end := min(start+samplesPerBlock, n)

		group := make([]Block, len(channels))
		for c, samples := range channels {
			group[c] = encode(samples[start:end])
		}

		f.Groups = append(f.Groups, group)
	}

	return f
}

// Ramp returns n samples starting at start and growing by step.
func Ramp(n int, start, step int32) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = start + int32(i)*step
	}

	return out
}

func padded(samples []int32, pad int32) []int32 {
	out := make([]int32, samplesPerBlock)
	n := copy(out, samples)

	for i := n; i < samplesPerBlock; i++ {
		out[i] = pad
	}

	return out
}
