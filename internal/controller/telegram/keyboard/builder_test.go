package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderSkipsEmptyRows(t *testing.T) {
	kb := NewBuilder().
		Row().
		Row(Button("a", "x:a"), Noop("")).
		Build()

	assert.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, " ", kb.InlineKeyboard[0][1].Text)
	assert.Equal(t, NoopData, kb.InlineKeyboard[0][1].CallbackData)
}

func TestChunk(t *testing.T) {
	kb := NewBuilder().Chunk(3,
		Button("1", "1"), Button("2", "2"), Button("3", "3"),
		Button("4", "4"), Button("5", "5"),
	).Build()

	if assert.Len(t, kb.InlineKeyboard, 2) {
		assert.Len(t, kb.InlineKeyboard[0], 3)
		assert.Len(t, kb.InlineKeyboard[1], 2)
	}
}
