// Package ncw decodes NCW compressed sample containers into linear PCM.
//
// An NCW file stores each channel in fixed blocks of 512 samples. Every block
// is compressed on its own with one of three schemes:
//
//   - raw: samples at the file's native bit depth
//   - delta: a base value followed by packed signed increments
//   - truncated: samples packed at a reduced bit width
//
// Blocks are located through an offset table that follows the 120 byte file
// header. The Decoder resolves that table, decodes every block and returns the
// channels interleaved, either as a plain []int32 or as an *audio.IntBuffer
// ready for a WAV or AIFF encoder.
//
// Mid/side channel encoding and floating point payloads are detected and
// rejected with ErrUnsupportedChannelEncoding and ErrUnsupportedSampleFormat.
package ncw
