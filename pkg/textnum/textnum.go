// Package textnum parses whitespace separated numeric text, such as keypoint
// dumps pasted from detector logs, into float rows.
package textnum

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotNumber is returned for a token that does not parse as a float.
var ErrNotNumber = errors.New("not a number")

// SplitLines splits s on newlines, keeping empty lines.
func SplitLines(s string) []string {
	return strings.Split(s, "\n")
}

// ParseFloats trims line, splits it on any whitespace and parses each field.
func ParseFloats(line string) ([]float64, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrNotNumber, "field %d %q", i, f)
		}
		out[i] = v
	}
	return out, nil
}

// ParseBlock parses every non-blank line of s.
func ParseBlock(s string) ([][]float64, error) {
	return Parse(strings.NewReader(s))
}

// Parse parses every non-blank line read from r.
func Parse(r io.Reader) ([][]float64, error) {
	var rows [][]float64
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		row, err := ParseFloats(sc.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
