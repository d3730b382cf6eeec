// Package signalio reads preprocessed strain series from text files.
//
// A file holds one sample per line. Lines may carry a leading time column
// separated by whitespace or a comma, in which case the last column is the
// sample. Blank lines and lines starting with '#' or '%' are skipped.
package signalio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadFile reads the series stored at path.
func ReadFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("signalio: %w", err)
	}
	defer f.Close()

	data, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("signalio: %s: %w", path, err)
	}
	return data, nil
}

// Read parses a series from r.
func Read(r io.Reader) ([]float64, error) {
	var (
		out     []float64
		columns int
		lineNo  int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}

		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == ';'
		})
		if len(fields) == 0 {
			continue
		}
		if columns == 0 {
			columns = len(fields)
		} else if len(fields) != columns {
			return nil, fmt.Errorf("line %d: %d columns, want %d", lineNo, len(fields), columns)
		}

		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	return out, nil
}

// Write stores data one sample per line with full float64 precision.
func Write(w io.Writer, data []float64) error {
	bw := bufio.NewWriter(w)
	for _, v := range data {
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
