package textnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_FoldsPunctuationAndCase(t *testing.T) {
	got := Normalize("What are your  Opening-Hours?!")
	require.Equal(t, Text(" what are your opening hours "), got)
}

func TestNormalize_Empty(t *testing.T) {
	require.True(t, Normalize("  ?! ").Empty())
	require.Equal(t, Text(" "), Normalize(""))
}

func TestHas_MatchesWholeWordsOnly(t *testing.T) {
	txt := Normalize("Is the shop open? I'm hungry")
	require.True(t, txt.Has("open"))
	require.True(t, txt.Has("i m hungry"))
	require.False(t, txt.Has("pen"))
	require.False(t, txt.Has("hop"))
	require.False(t, txt.Has(""))
}

func TestCountAndHasAny(t *testing.T) {
	txt := Normalize("where is the address, where?")
	require.Equal(t, 2, txt.Count([]string{"where", "address", "located"}))
	require.True(t, txt.HasAny([]string{"nope", "address"}))
	require.False(t, txt.HasAny(nil))
}

func TestNormalize_KeepsUnicodeLetters(t *testing.T) {
	require.True(t, Normalize("Phở bò, please").Has("phở bò"))
}
