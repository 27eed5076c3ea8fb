package record

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

func WriteText(w io.Writer, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", r.NX, r.NZ, r.NT())
	fmt.Fprintf(bw, "%s %s\n", formatFloat(r.XMin), formatFloat(r.XMax))
	fmt.Fprintf(bw, "%s %s\n", formatFloat(r.ZMin), formatFloat(r.ZMax))

	buf := make([]byte, 0, 32)
	for i, f := range r.Frames {
		bw.WriteString(formatFloat(r.Times[i]))
		bw.WriteByte('\n')
		for iz := 0; iz < r.NZ; iz++ {
			for ix, v := range f.RawRowView(iz) {
				if ix > 0 {
					bw.WriteByte(' ')
				}
				buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
				bw.Write(buf)
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// textReader yields whitespace separated fields line by line.
type textReader struct {
	sc   *bufio.Scanner
	line int
}

func (t *textReader) next(want int) ([]string, error) {
	for t.sc.Scan() {
		t.line++
		fields := strings.Fields(t.sc.Text())
		if len(fields) == 0 {
			continue
		}
		if want > 0 && len(fields) != want {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrBadRecord, t.line, len(fields), want)
		}
		return fields, nil
	}
	if err := t.sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: unexpected end of input after line %d", ErrBadRecord, t.line)
}

func (t *textReader) floats(want int) ([]float64, error) {
	fields, err := t.next(want)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, t.line, err)
		}
		out[i] = v
	}
	return out, nil
}

func ReadText(rd io.Reader) (*Record, error) {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	t := &textReader{sc: sc}

	dims, err := t.next(3)
	if err != nil {
		return nil, err
	}
	var n [3]int
	for i, s := range dims {
		if n[i], err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, t.line, err)
		}
	}
	nx, nz, nt := n[0], n[1], n[2]
	if nx < 1 || nz < 1 || nt < 0 {
		return nil, fmt.Errorf("%w: dimensions nx=%d nz=%d nt=%d", ErrBadRecord, nx, nz, nt)
	}

	xs, err := t.floats(2)
	if err != nil {
		return nil, err
	}
	zs, err := t.floats(2)
	if err != nil {
		return nil, err
	}

	r := &Record{
		XMin:   xs[0],
		XMax:   xs[1],
		ZMin:   zs[0],
		ZMax:   zs[1],
		NX:     nx,
		NZ:     nz,
		Times:  make([]float64, nt),
		Frames: make([]*mat.Dense, nt),
	}
	for i := 0; i < nt; i++ {
		ts, err := t.floats(1)
		if err != nil {
			return nil, err
		}
		r.Times[i] = ts[0]

		data := make([]float64, 0, nx*nz)
		for iz := 0; iz < nz; iz++ {
			row, err := t.floats(nx)
			if err != nil {
				return nil, err
			}
			data = append(data, row...)
		}
		r.Frames[i] = mat.NewDense(nz, nx, data)
	}
	return r, nil
}
