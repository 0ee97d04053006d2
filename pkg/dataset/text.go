package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	errs "github.com/matzehuels/tapesched/pkg/errors"
	"github.com/matzehuels/tapesched/pkg/tape"
)

// Section markers of the text format.
const (
	markerHead    = `["head`
	markerIOCount = `["io count`
	markerIOArray = `["io`
)

// ReadText decodes the bracketed text format from r.
//
// Lines outside the known sections are ignored. Both the head and the io
// count sections must be present. ReadText does not close r.
func ReadText(r io.Reader) (*Dataset, error) {
	var (
		ds       Dataset
		haveHead bool
		haveCnt  bool
		lineNo   int
	)

	sc := bufio.NewScanner(r)
	next := func() (string, bool) {
		for sc.Scan() {
			lineNo++
			if line := strings.TrimSpace(sc.Text()); line != "" {
				return line, true
			}
		}
		return "", false
	}

	for {
		line, ok := next()
		if !ok {
			break
		}

		switch {
		case strings.HasPrefix(line, markerHead):
			vals, err := expectValues(next, &lineNo, "head info", 3)
			if err != nil {
				return nil, err
			}
			ds.Head = tape.HeadPosition{Wrap: vals[0], LPos: vals[1], Status: tape.HeadStatus(vals[2])}
			haveHead = true

		case strings.HasPrefix(line, markerIOCount):
			vals, err := expectValues(next, &lineNo, "io count", 1)
			if err != nil {
				return nil, err
			}
			ds.Batch.Count = int(vals[0])
			haveCnt = true

		case strings.HasPrefix(line, markerIOArray):
			// Requests follow on their own lines.

		case isValueLine(line):
			vals, err := parseValues(line, 4)
			if err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d: io entry", lineNo)
			}
			ds.Batch.Requests = append(ds.Batch.Requests, tape.Request{
				ID: vals[0], Wrap: vals[1], StartLPos: vals[2], EndLPos: vals[3],
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "read text dataset")
	}

	if !haveHead {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "missing head info section")
	}
	if !haveCnt {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "missing io count section")
	}
	return &ds, nil
}

func expectValues(next func() (string, bool), lineNo *int, section string, n int) ([]uint32, error) {
	line, ok := next()
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidFormat, "section %s has no value line", section)
	}
	vals, err := parseValues(line, n)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "line %d: %s", *lineNo, section)
	}
	return vals, nil
}

// isValueLine reports whether line looks like "[<digit>...".
func isValueLine(line string) bool {
	return len(line) > 1 && line[0] == '[' && line[1] >= '0' && line[1] <= '9'
}

// parseValues parses "[a,b,...]" into exactly n unsigned integers.
func parseValues(line string, n int) ([]uint32, error) {
	body, ok := strings.CutPrefix(line, "[")
	if !ok {
		return nil, fmt.Errorf("expected '[' in %q", line)
	}
	body, ok = strings.CutSuffix(strings.TrimRight(body, ", "), "]")
	if !ok {
		return nil, fmt.Errorf("expected ']' in %q", line)
	}

	fields := strings.Split(body, ",")
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d in %q", n, len(fields), line)
	}
	vals := make([]uint32, n)
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = uint32(v)
	}
	return vals, nil
}

// WriteText encodes ds in the bracketed text format.
func WriteText(ds *Dataset, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "[\"head info\"]\n[%d,%d,%d]\n", ds.Head.Wrap, ds.Head.LPos, uint32(ds.Head.Status))
	fmt.Fprintf(bw, "[\"io count\"]\n[%d]\n", ds.Batch.Count)
	fmt.Fprintln(bw, `["io array"]`)
	for _, r := range ds.Batch.Requests {
		fmt.Fprintf(bw, "[%d,%d,%d,%d]\n", r.ID, r.Wrap, r.StartLPos, r.EndLPos)
	}
	if err := bw.Flush(); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "write text dataset")
	}
	return nil
}
