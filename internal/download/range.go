package download

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apestel/hardwire/internal/hwerr"
)

// ByteRange is a single, inclusive, satisfiable byte range resolved
// against a known file size.
type ByteRange struct {
	Start, End int64 // inclusive
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ParseRange interprets a Range header value against a file of the
// given size. Returns (nil, nil) when header is empty (full body).
// A non-bytes unit and malformed syntax are rejected as Validation;
// multi-range requests and unsatisfiable single ranges are reported
// as RangeNotSatisfiable so the caller can emit 416 with
// Content-Range: bytes */size.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, hwerr.New(hwerr.KindValidation, "unsupported range unit")
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return nil, hwerr.New(hwerr.KindRangeNotSatisfiable, "multi-range requests are not supported")
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return nil, hwerr.New(hwerr.KindValidation, "malformed range syntax")
	}

	startStr, endStr := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	var start, end int64
	var err error

	switch {
	case startStr == "" && endStr == "":
		return nil, hwerr.New(hwerr.KindValidation, "malformed range syntax")
	case startStr == "":
		// suffix range: bytes=-N -> last N bytes
		n, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || n <= 0 {
			return nil, hwerr.New(hwerr.KindValidation, "malformed range syntax")
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case endStr == "":
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return nil, hwerr.New(hwerr.KindValidation, "malformed range syntax")
		}
		end = size - 1
	default:
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return nil, hwerr.New(hwerr.KindValidation, "malformed range syntax")
		}
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, hwerr.New(hwerr.KindRangeNotSatisfiable, "range end precedes range start")
		}
	}

	if start >= size || end < start {
		return nil, hwerr.New(hwerr.KindRangeNotSatisfiable, "range outside file bounds")
	}
	if end >= size {
		end = size - 1
	}

	return &ByteRange{Start: start, End: end}, nil
}

// ContentRangeHeader formats the Content-Range value for a satisfiable range.
func ContentRangeHeader(r ByteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// UnsatisfiableContentRangeHeader formats the Content-Range value for a 416 response.
func UnsatisfiableContentRangeHeader(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
