package leb128

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInt32(t *testing.T) {
	cases := []struct {
		input    int32
		expected []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{-1, []byte{0x7f}},
		{-4, []byte{0x7c}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{-624485, []byte{0x9b, 0xf1, 0x59}},
		{math.MaxInt32, []byte{0xff, 0xff, 0xff, 0xff, 0x7}},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, EncodeInt32(c.input))
		got, n, err := LoadInt32(c.expected)
		require.NoError(t, err)
		require.Equal(t, c.input, got)
		require.Equal(t, uint64(len(c.expected)), n)
	}
}

func TestEncodeDecodeUint32(t *testing.T) {
	cases := []struct {
		input    uint32
		expected []byte
	}{
		{0, []byte{0x00}},
		{16256, []byte{0x80, 0x7f}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0xf}},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, EncodeUint32(c.input))
		got, n, err := LoadUint32(c.expected)
		require.NoError(t, err)
		require.Equal(t, c.input, got)
		require.Equal(t, uint64(len(c.expected)), n)
	}
}

func TestLoadUint32Overflow(t *testing.T) {
	_, _, err := LoadUint32([]byte{0x83, 0x80, 0x80, 0x80, 0x80, 0x00})
	require.Error(t, err)
}

func TestLoadInt64Roundtrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 165675008, -165675008} {
		enc := EncodeInt64(v)
		got, n, err := LoadInt64(enc)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, uint64(len(enc)), n)
	}
}

func TestDecodeInt33AsInt64(t *testing.T) {
	cases := []struct {
		bytes []byte
		exp   int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0x40}, -64},
		{[]byte{0x81, 0x01}, 129},
	}
	for _, c := range cases {
		got, n, err := DecodeInt33AsInt64(bytes.NewReader(c.bytes))
		require.NoError(t, err)
		require.Equal(t, c.exp, got)
		require.Equal(t, uint64(len(c.bytes)), n)
	}
}
