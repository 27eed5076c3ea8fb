package record

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
)

// maxCells bounds nx·nz·nt read from a header before allocating.
const maxCells = 1 << 31

type header struct {
	Version    [3]int32
	Width      int32
	NX, NZ, NT int32
	XMin, XMax float32
	ZMin, ZMax float32
}

// WriteBinary encodes r with floats of the given byte width (4 or 8).
func WriteBinary(w io.Writer, r *Record, width int) error {
	if width != 4 && width != 8 {
		return fmt.Errorf("%w: float width %d", ErrUnsupportedFormat, width)
	}
	if err := r.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	h := header{
		Version: Version,
		Width:   int32(width),
		NX:      int32(r.NX),
		NZ:      int32(r.NZ),
		NT:      int32(r.NT()),
		XMin:    float32(r.XMin),
		XMax:    float32(r.XMax),
		ZMin:    float32(r.ZMin),
		ZMax:    float32(r.ZMax),
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}
	if err := writeFloats(bw, r.Times, width); err != nil {
		return err
	}
	for _, f := range r.Frames {
		for i := 0; i < r.NZ; i++ {
			if err := writeFloats(bw, f.RawRowView(i), width); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeFloats(w io.Writer, v []float64, width int) error {
	if width == 8 {
		return binary.Write(w, binary.LittleEndian, v)
	}
	v32 := make([]float32, len(v))
	for i, x := range v {
		v32[i] = float32(x)
	}
	return binary.Write(w, binary.LittleEndian, v32)
}

func ReadBinary(rd io.Reader) (*Record, error) {
	br := bufio.NewReader(rd)

	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrBadRecord, err)
	}
	if h.Version[0] != Version[0] {
		return nil, fmt.Errorf("%w: version %d.%d.%d", ErrUnsupportedFormat, h.Version[0], h.Version[1], h.Version[2])
	}
	if h.Width != 4 && h.Width != 8 {
		return nil, fmt.Errorf("%w: float width %d", ErrBadRecord, h.Width)
	}
	if h.NX < 1 || h.NZ < 1 || h.NT < 0 || int64(h.NX)*int64(h.NZ)*int64(h.NT) > maxCells {
		return nil, fmt.Errorf("%w: dimensions nx=%d nz=%d nt=%d", ErrBadRecord, h.NX, h.NZ, h.NT)
	}

	nx, nz, nt := int(h.NX), int(h.NZ), int(h.NT)
	width := int(h.Width)

	times, err := readFloats(br, nt, width)
	if err != nil {
		return nil, fmt.Errorf("%w: times: %v", ErrBadRecord, err)
	}
	frames := make([]*mat.Dense, nt)
	for i := range frames {
		data, err := readFloats(br, nx*nz, width)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrBadRecord, i, err)
		}
		frames[i] = mat.NewDense(nz, nx, data)
	}

	return &Record{
		XMin:   float64(h.XMin),
		XMax:   float64(h.XMax),
		ZMin:   float64(h.ZMin),
		ZMax:   float64(h.ZMax),
		NX:     nx,
		NZ:     nz,
		Times:  times,
		Frames: frames,
	}, nil
}

func readFloats(r io.Reader, n, width int) ([]float64, error) {
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}
	if width == 8 {
		err := binary.Read(r, binary.LittleEndian, out)
		return out, err
	}
	v32 := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, v32); err != nil {
		return nil, err
	}
	for i, x := range v32 {
		out[i] = float64(x)
	}
	return out, nil
}
