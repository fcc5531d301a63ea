package imaging

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// TIFF tag identifiers used by WriteTIFF.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
)

// TIFF field types.
const (
	typeShort = 3
	typeLong  = 4
)

// sampleFormat values for tagSampleFormat.
const (
	sampleUint  = 1
	sampleFloat = 3
)

type ifdEntry struct {
	tag, typ uint16
	value    uint32
}

// WriteTIFF encodes b as an uncompressed little-endian TIFF.
//
// Each plane becomes one page (IFD), so stacks open as stacks in common
// viewers. Depth32F and Depth64F buffers are written as IEEE float samples
// (SampleFormat 3) of that width; Depth8 and Depth16 as unsigned integers, clamped to the
// depth's range. Float samples are written without any rescaling so negative
// and large statistic values survive.
func WriteTIFF(w io.Writer, b *Buffer) error {
	bps := bytesPerSample(b.Depth)
	if bps == 0 {
		return fmt.Errorf("unsupported depth %v", b.Depth)
	}

	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	const nEntries = 11
	ifdSize := uint32(2 + nEntries*12 + 4)
	planeBytes := uint32(b.Width * b.Height * bps)
	padded := planeBytes + planeBytes%2

	// Header: byte order, magic, offset of first IFD. Every page is laid out
	// as pixel data followed by its IFD.
	header := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	le.PutUint32(header[4:], 8+padded)
	if _, err := bw.Write(header); err != nil {
		return err
	}

	offset := uint32(8)

	sample := make([]byte, bps)
	for p := 0; p < b.Planes; p++ {
		dataOff := offset
		for _, v := range b.PlanePix(p) {
			encodeSample(sample, v, b.Depth)
			if _, err := bw.Write(sample); err != nil {
				return err
			}
		}
		if padded != planeBytes {
			if err := bw.WriteByte(0); err != nil {
				return err
			}
		}
		offset += padded

		next := uint32(0)
		if p < b.Planes-1 {
			next = offset + ifdSize + padded
		}

		format := uint32(sampleUint)
		if b.Depth == Depth32F || b.Depth == Depth64F {
			format = sampleFloat
		}
		entries := [nEntries]ifdEntry{
			{tagImageWidth, typeLong, uint32(b.Width)},
			{tagImageLength, typeLong, uint32(b.Height)},
			{tagBitsPerSample, typeShort, uint32(bps * 8)},
			{tagCompression, typeShort, 1},
			{tagPhotometric, typeShort, 1},
			{tagStripOffsets, typeLong, dataOff},
			{tagSamplesPerPixel, typeShort, 1},
			{tagRowsPerStrip, typeLong, uint32(b.Height)},
			{tagStripByteCounts, typeLong, planeBytes},
			{tagPlanarConfig, typeShort, 1},
			{tagSampleFormat, typeShort, format},
		}

		ifd := make([]byte, ifdSize)
		le.PutUint16(ifd[0:], nEntries)
		for i, e := range entries {
			base := 2 + i*12
			le.PutUint16(ifd[base:], e.tag)
			le.PutUint16(ifd[base+2:], e.typ)
			le.PutUint32(ifd[base+4:], 1)
			if e.typ == typeShort {
				le.PutUint16(ifd[base+8:], uint16(e.value))
			} else {
				le.PutUint32(ifd[base+8:], e.value)
			}
		}
		le.PutUint32(ifd[ifdSize-4:], next)
		if _, err := bw.Write(ifd); err != nil {
			return err
		}
		offset += ifdSize
	}

	return bw.Flush()
}

// SaveTIFF writes b to path, see WriteTIFF.
func SaveTIFF(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteTIFF(f, b); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func bytesPerSample(d Depth) int {
	switch d {
	case Depth8:
		return 1
	case Depth16:
		return 2
	case Depth32F:
		return 4
	case Depth64F:
		return 8
	}
	return 0
}

func encodeSample(dst []byte, v float64, d Depth) {
	switch d {
	case Depth8:
		dst[0] = uint8(clampFloat(math.Round(v), 0, math.MaxUint8))
	case Depth16:
		binary.LittleEndian.PutUint16(dst, uint16(clampFloat(math.Round(v), 0, math.MaxUint16)))
	case Depth32F:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case Depth64F:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	}
}
