package summarizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOp_ShortBodyPassesThrough(t *testing.T) {
	s, err := NewNoOp().Summarize(context.Background(), "title", "A short article body.")
	require.NoError(t, err)

	assert.Equal(t, "A short article body.", s.Summary)
	assert.Equal(t, "A short article body.", s.MetaDescription)
}

func TestNoOp_LongBodyTruncates(t *testing.T) {
	body := strings.Repeat("word ", 500)

	s, err := NewNoOp().Summarize(context.Background(), "title", body)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(s.Summary, "..."))
	assert.LessOrEqual(t, len([]rune(s.Summary)), defaultSummaryLimit+3)
	assert.LessOrEqual(t, len([]rune(s.MetaDescription)), metaDescriptionLimit)
}

func TestNoOp_FallsBackToTitle(t *testing.T) {
	s, err := NewNoOp().Summarize(context.Background(), "Only a title", "  ")
	require.NoError(t, err)
	assert.Equal(t, "Only a title", s.Summary)
}

func TestNoOp_EmptyInput(t *testing.T) {
	_, err := NewNoOp().Summarize(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestValidateCharacterLimit(t *testing.T) {
	assert.NoError(t, ValidateCharacterLimit(600))
	assert.Error(t, ValidateCharacterLimit(50))
	assert.Error(t, ValidateCharacterLimit(6000))
}

func TestLoadSummaryLimit(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		assert.Equal(t, defaultSummaryLimit, loadSummaryLimit())
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("SUMMARIZER_CHAR_LIMIT", "400")
		assert.Equal(t, 400, loadSummaryLimit())
	})

	t.Run("out of range uses default", func(t *testing.T) {
		t.Setenv("SUMMARIZER_CHAR_LIMIT", "99999")
		assert.Equal(t, defaultSummaryLimit, loadSummaryLimit())
	})

	t.Run("malformed uses default", func(t *testing.T) {
		t.Setenv("SUMMARIZER_CHAR_LIMIT", "many")
		assert.Equal(t, defaultSummaryLimit, loadSummaryLimit())
	})
}
