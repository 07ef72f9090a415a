package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ids := []string{"a", "bb"}
	vecs := [][]float32{{1, -2.5}, {0, 3.25}}
	data, err := Encode(ids, vecs)
	require.NoError(t, err)

	gotIDs, gotVecs, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ids, gotIDs)
	assert.Equal(t, vecs, gotVecs)
}

func TestEncodeDecode_Empty(t *testing.T) {
	data, err := Encode(nil, nil)
	require.NoError(t, err)
	assert.Len(t, data, 8)
	ids, vecs, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, vecs)
}

func TestDecode_Truncated(t *testing.T) {
	data, err := Encode([]string{"abc"}, [][]float32{{1, 2}})
	require.NoError(t, err)
	for _, cut := range []int{3, 10, 13, len(data) - 1} {
		_, _, err := Decode(data[:cut])
		assert.Error(t, err, "cut=%d", cut)
	}
}

func TestEncode_Mismatch(t *testing.T) {
	_, err := Encode([]string{"a"}, nil)
	assert.Error(t, err)
	_, err = Encode([]string{"a", "b"}, [][]float32{{1}, {1, 2}})
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	var testCases = []struct {
		input  string
		expect Metric
		err    bool
	}{
		{input: "", expect: Cosine},
		{input: "COSINE", expect: Cosine},
		{input: "l2", expect: Euclidean},
		{input: "euclidean", expect: Euclidean},
		{input: "dot", expect: Dot},
		{input: "manhattan", err: true},
	}
	for _, testCase := range testCases {
		got, err := ParseMetric(testCase.input)
		if testCase.err {
			assert.Error(t, err, testCase.input)
			continue
		}
		require.NoError(t, err, testCase.input)
		assert.Equal(t, testCase.expect, got, testCase.input)
		assert.True(t, got.Valid())
	}
	assert.False(t, Metric("x").Valid())
}
