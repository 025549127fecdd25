package field

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// Magic identifies a binary field file ("CD3B").
	Magic uint32 = 0x43443342
	// HeaderSize is the fixed header length and payload offset.
	HeaderSize = 512
	// NameSize is the width of each NUL-padded name slot.
	NameSize = 64

	offModel  = 8
	offSource = offModel + NameSize
	offKind   = offSource + NameSize
	offStride = offKind + 4
	offAxes   = offStride + 4
	axisSize  = 32

	// maxSampleValues caps payload allocation at 16 GiB of float64s.
	maxSampleValues = 1 << 31
	chunkValues     = 8192
)

// Header is the decoded metadata block of a binary field file.
type Header struct {
	Magic      uint32
	DataOffset uint32
	Provenance Provenance
	Kind       Kind
	Stride     uint32
	Extents    [3]Range
}

// MarshalBinary encodes g with its own provenance.
func (g *Grid) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, g, g.Provenance); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces g with the field decoded from data.
func (g *Grid) UnmarshalBinary(data []byte) error {
	decoded, err := ReadBinary(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

func encodeHeader(g *Grid, prov Provenance) []byte {
	hdr := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(hdr[0:], Magic)
	binary.LittleEndian.PutUint32(hdr[4:], HeaderSize)
	putName(hdr[offModel:offModel+NameSize], prov.Model)
	putName(hdr[offSource:offSource+NameSize], prov.Source)
	binary.LittleEndian.PutUint32(hdr[offKind:], uint32(g.Kind))
	binary.LittleEndian.PutUint32(hdr[offStride:], g.Stride)
	for i, e := range g.Extents {
		b := hdr[offAxes+i*axisSize:]
		binary.LittleEndian.PutUint32(b[0:], e.Count)
		if e.Active {
			binary.LittleEndian.PutUint32(b[4:], 1)
		}
		binary.LittleEndian.PutUint64(b[8:], math.Float64bits(e.Min))
		binary.LittleEndian.PutUint64(b[16:], math.Float64bits(e.Max))
		binary.LittleEndian.PutUint64(b[24:], math.Float64bits(e.Step))
	}
	return hdr
}

// putName copies at most NameSize-1 bytes so the slot stays NUL-terminated.
func putName(dst []byte, s string) {
	if len(s) > NameSize-1 {
		s = s[:NameSize-1]
	}
	copy(dst, s)
}

func getName(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		src = src[:i]
	}
	return string(src)
}

// DecodeHeader parses and validates a 512-byte header block.
func DecodeHeader(hdr []byte) (Header, error) {
	var h Header
	if len(hdr) < HeaderSize {
		return h, fmt.Errorf("%w: header is %d bytes, want %d", ErrReadFailure, len(hdr), HeaderSize)
	}
	h.Magic = binary.LittleEndian.Uint32(hdr[0:])
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: magic %#08x, want %#08x", ErrBadStructure, h.Magic, Magic)
	}
	h.DataOffset = binary.LittleEndian.Uint32(hdr[4:])
	if h.DataOffset < HeaderSize {
		return h, fmt.Errorf("%w: data offset %d inside header", ErrBadStructure, h.DataOffset)
	}
	h.Provenance.Model = getName(hdr[offModel : offModel+NameSize])
	h.Provenance.Source = getName(hdr[offSource : offSource+NameSize])
	h.Kind = Kind(binary.LittleEndian.Uint32(hdr[offKind:]))
	h.Stride = binary.LittleEndian.Uint32(hdr[offStride:])
	if h.Kind != Axisymmetric2D && h.Kind != Full3D {
		return h, fmt.Errorf("%w: unknown kind %d", ErrBadStructure, uint32(h.Kind))
	}

	active := 0
	for i := range h.Extents {
		b := hdr[offAxes+i*axisSize:]
		e := Range{
			Count: binary.LittleEndian.Uint32(b[0:]),
			Min:   math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
			Max:   math.Float64frombits(binary.LittleEndian.Uint64(b[16:])),
			Step:  math.Float64frombits(binary.LittleEndian.Uint64(b[24:])),
		}
		// The stored flag is advisory; activity follows the sample count.
		e.Active = e.Count > 1
		if e.Active {
			active++
			if !(e.Max > e.Min) || !(e.Step > 0) {
				return h, fmt.Errorf("%w: axis %d has %d samples but min=%g max=%g step=%g",
					ErrBadStructure, i, e.Count, e.Min, e.Max, e.Step)
			}
		}
		h.Extents[i] = e
	}
	want := 3
	if h.Kind == Axisymmetric2D {
		want = 2
	}
	if active != want {
		return h, fmt.Errorf("%w: %s header has %d active axes, want %d", ErrBadStructure, h.Kind, active, want)
	}
	return h, nil
}

// WriteBinary writes the header and sample payload of g to w, recording
// prov as the model and source names.
func WriteBinary(w io.Writer, g *Grid, prov Provenance) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if n, err := w.Write(encodeHeader(g, prov)); err != nil || n != HeaderSize {
		return fmt.Errorf("%w: header wrote %d of %d bytes: %v", ErrBadWrite, n, HeaderSize, err)
	}

	buf := make([]byte, 8*chunkValues)
	for start := 0; start < len(g.Samples); start += chunkValues {
		end := min(start+chunkValues, len(g.Samples))
		b := buf[:8*(end-start)]
		for i, v := range g.Samples[start:end] {
			binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
		}
		if n, err := w.Write(b); err != nil || n != len(b) {
			return fmt.Errorf("%w: payload wrote %d of %d bytes at value %d: %v", ErrBadWrite, n, len(b), start, err)
		}
	}
	return nil
}

// checkPayload fails when fewer than total values remain after the current
// offset of s. The offset is restored on success.
func checkPayload(s io.Seeker, total uint64) error {
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: seek: %v", ErrReadFailure, err)
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: seek: %v", ErrReadFailure, err)
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", ErrReadFailure, err)
	}
	if avail := uint64(max(end-cur, 0)); avail/8 < total {
		return fmt.Errorf("%w: header claims %d values, payload holds %d", ErrReadFailure, total, avail/8)
	}
	return nil
}

// ReadBinary decodes a field from r. Seekable readers are rewound first.
func ReadBinary(r io.Reader) (*Grid, error) {
	if s, ok := r.(io.Seeker); ok {
		if _, err := s.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek: %v", ErrReadFailure, err)
		}
	}
	hdr := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrReadFailure, err)
	}
	h, err := DecodeHeader(hdr)
	if err != nil {
		return nil, err
	}
	if skip := int64(h.DataOffset) - HeaderSize; skip > 0 {
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, fmt.Errorf("%w: skipping to offset %d: %v", ErrReadFailure, h.DataOffset, err)
		}
	}

	g := &Grid{Kind: h.Kind, Extents: h.Extents, Stride: h.Stride, Provenance: h.Provenance}
	g.Name = h.Provenance.Source
	total := g.SampleCount() * uint64(g.Components())
	if total == 0 || total > maxSampleValues {
		return nil, fmt.Errorf("%w: %d sample values", ErrAllocFailed, total)
	}
	if s, ok := r.(io.Seeker); ok {
		if err := checkPayload(s, total); err != nil {
			return nil, err
		}
	}

	// The buffer grows with the data actually read so a header claiming
	// more samples than the stream holds cannot force a huge allocation.
	g.Samples = make([]float64, 0, min(total, chunkValues))
	buf := make([]byte, 8*chunkValues)
	for start := uint64(0); start < total; start += chunkValues {
		end := min(start+chunkValues, total)
		b := buf[:8*(end-start)]
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("%w: payload at value %d of %d: %v", ErrReadFailure, start, total, err)
		}
		for i := range end - start {
			g.Samples = append(g.Samples, math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:])))
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
