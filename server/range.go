package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// errRangeMalformed marks headers we cannot parse as a single byte
	// range. Callers fall back to serving the full content so simple
	// range-seeking clients keep working.
	errRangeMalformed = errors.New("malformed range header")
	// errRangeUnsatisfiable marks a syntactically valid range that starts
	// at or past the end of the file. Callers answer 416.
	errRangeUnsatisfiable = errors.New("range not satisfiable")
)

// byteRange is an inclusive byte range [Start, End].
type byteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r byteRange) Length() int64 {
	return r.End - r.Start + 1
}

// parseRange parses a "Range" header of the form "bytes=start-end" against
// a resource of the given size. An omitted end means end of file; an end
// past the file is clamped. Multi-range and suffix forms are out of contract
// and report errRangeMalformed.
func parseRange(header string, size int64) (byteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, errRangeMalformed
	}

	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return byteRange{}, errRangeMalformed
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return byteRange{}, errRangeMalformed
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])
	if startStr == "" {
		return byteRange{}, errRangeMalformed
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, errRangeMalformed
	}
	if start >= size {
		return byteRange{}, errRangeUnsatisfiable
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return byteRange{}, errRangeMalformed
		}
		if end >= size {
			end = size - 1
		}
	}

	return byteRange{Start: start, End: end}, nil
}

// contentRange formats the Content-Range header for a 206 response.
func contentRange(r byteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// unsatisfiableContentRange formats the Content-Range header for a 416.
func unsatisfiableContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
