package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	const size = 1000

	tests := []struct {
		name   string
		header string
		want   byteRange
	}{
		{"full span", "bytes=0-999", byteRange{0, 999}},
		{"open end", "bytes=500-", byteRange{500, 999}},
		{"single byte", "bytes=0-0", byteRange{0, 0}},
		{"last byte", "bytes=999-999", byteRange{999, 999}},
		{"end clamped to size", "bytes=900-5000", byteRange{900, 999}},
		{"interior", "bytes=100-200", byteRange{100, 200}},
		{"whitespace tolerated", "bytes= 100 - 200 ", byteRange{100, 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRange(tt.header, size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRangeMalformed(t *testing.T) {
	const size = 1000

	headers := []string{
		"",
		"bytes",
		"bytes=",
		"bytes=-",
		"bytes=-500",          // suffix form is out of contract
		"bytes=0-100,200-300", // multi-range is out of contract
		"bytes=abc-def",
		"bytes=100-50", // end before start
		"items=0-100",
		"0-100",
	}
	for _, h := range headers {
		_, err := parseRange(h, size)
		assert.ErrorIs(t, err, errRangeMalformed, "header %q", h)
	}
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	const size = 1000

	for _, h := range []string{"bytes=1000-", "bytes=1000-1500", "bytes=99999-"} {
		_, err := parseRange(h, size)
		assert.ErrorIs(t, err, errRangeUnsatisfiable, "header %q", h)
	}
}

func TestRangeLength(t *testing.T) {
	assert.Equal(t, int64(1), byteRange{0, 0}.Length())
	assert.Equal(t, int64(101), byteRange{100, 200}.Length())
}

func TestContentRangeFormats(t *testing.T) {
	assert.Equal(t, "bytes 0-99/1000", contentRange(byteRange{0, 99}, 1000))
	assert.Equal(t, "bytes */1000", unsatisfiableContentRange(1000))
}
