package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCopyResponse_PlainObject(t *testing.T) {
	t.Parallel()

	out := ParseCopyResponse(`{"headlines": ["Buy Socks", "Warm Feet"], "descriptions": ["Soft wool socks shipped in 24 hrs."]}`, 15, 4)
	require.True(t, out.OK)
	require.Equal(t, []string{"Buy Socks", "Warm Feet"}, out.Headlines)
	require.Equal(t, []string{"Soft wool socks shipped in 24 hrs."}, out.Descriptions)
}

func TestParseCopyResponse_CodeFence(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"headlines\": [\"H1\"], \"descriptions\": [\"D1\"]}\n```"
	out := ParseCopyResponse(raw, 15, 4)
	require.True(t, out.OK)
	require.Equal(t, []string{"H1"}, out.Headlines)

	// Bare fence without a language tag.
	raw = "```\n{\"headlines\": [\"H1\"], \"descriptions\": [\"D1\"]}\n```"
	out = ParseCopyResponse(raw, 15, 4)
	require.True(t, out.OK)
}

func TestParseCopyResponse_SurroundingProse(t *testing.T) {
	t.Parallel()

	raw := `Here is your ad copy:
{"headlines": ["Great Deal {50% Off}"], "descriptions": ["Order now."]}
Let me know if you want changes.`
	out := ParseCopyResponse(raw, 15, 4)
	require.True(t, out.OK)
	require.Equal(t, []string{"Great Deal {50% Off}"}, out.Headlines)
}

func TestParseCopyResponse_BracesInsideStrings(t *testing.T) {
	t.Parallel()

	out := ParseCopyResponse(`{"headlines": ["open { never closed"], "descriptions": ["also } here"]}`, 15, 4)
	require.True(t, out.OK)
	require.Equal(t, []string{"open { never closed"}, out.Headlines)
	require.Equal(t, []string{"also } here"}, out.Descriptions)
}

func TestParseCopyResponse_Truncation(t *testing.T) {
	t.Parallel()

	out := ParseCopyResponse(`{"headlines": ["1","2","3","4"], "descriptions": ["a","b","c"]}`, 3, 2)
	require.True(t, out.OK)
	require.Equal(t, []string{"1", "2", "3"}, out.Headlines)
	require.Equal(t, []string{"a", "b"}, out.Descriptions)
}

func TestParseCopyResponse_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no object", "sorry, I cannot help with that"},
		{"unterminated object", `{"headlines": ["H1"`},
		{"not json", "{this is not json}"},
		{"missing descriptions", `{"headlines": ["H1"]}`},
		{"missing headlines", `{"descriptions": ["D1"]}`},
		{"wrong types", `{"headlines": "H1", "descriptions": ["D1"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := ParseCopyResponse(tc.raw, 15, 4)
			require.False(t, out.OK, "expected failure for %q", tc.raw)
			require.NotEmpty(t, out.Reason)
		})
	}
}
