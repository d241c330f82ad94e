package download

import (
	"testing"

	"github.com/apestel/hardwire/internal/hwerr"
	"github.com/stretchr/testify/require"
)

func TestParseRangeAbsent(t *testing.T) {
	r, err := ParseRange("", 1000)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestParseRangeSatisfiable(t *testing.T) {
	r, err := ParseRange("bytes=0-524287", 1048576)
	require.NoError(t, err)
	require.Equal(t, int64(0), r.Start)
	require.Equal(t, int64(524287), r.End)
	require.Equal(t, int64(524288), r.Length())
}

func TestParseRangeOpenEnded(t *testing.T) {
	r, err := ParseRange("bytes=524288-", 1048576)
	require.NoError(t, err)
	require.Equal(t, int64(524288), r.Start)
	require.Equal(t, int64(1048575), r.End)
}

func TestParseRangeSuffix(t *testing.T) {
	r, err := ParseRange("bytes=-100", 1000)
	require.NoError(t, err)
	require.Equal(t, int64(900), r.Start)
	require.Equal(t, int64(999), r.End)
}

func TestParseRangeSingleByte(t *testing.T) {
	r, err := ParseRange("bytes=0-0", 1000)
	require.NoError(t, err)
	require.Equal(t, int64(1), r.Length())
}

func TestParseRangeEqualsSizeIsUnsatisfiable(t *testing.T) {
	_, err := ParseRange("bytes=1000-1000", 1000)
	require.True(t, hwerr.Is(err, hwerr.KindRangeNotSatisfiable))
}

func TestParseRangeEndBeforeStartIsUnsatisfiable(t *testing.T) {
	_, err := ParseRange("bytes=500-100", 1000)
	require.True(t, hwerr.Is(err, hwerr.KindRangeNotSatisfiable))
}

func TestParseRangeMultiRangeRejected(t *testing.T) {
	_, err := ParseRange("bytes=0-100,200-300", 1000)
	require.True(t, hwerr.Is(err, hwerr.KindRangeNotSatisfiable))
}

func TestParseRangeMalformedSyntax(t *testing.T) {
	_, err := ParseRange("bytes=abc", 1000)
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestParseRangeWrongUnit(t *testing.T) {
	_, err := ParseRange("items=0-10", 1000)
	require.True(t, hwerr.Is(err, hwerr.KindValidation))
}

func TestContentRangeHeaders(t *testing.T) {
	require.Equal(t, "bytes 0-99/1000", ContentRangeHeader(ByteRange{Start: 0, End: 99}, 1000))
	require.Equal(t, "bytes */1000", UnsatisfiableContentRangeHeader(1000))
}
