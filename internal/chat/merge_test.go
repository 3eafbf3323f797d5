package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saravenpi/tablechat/internal/models"
)

func msg(uid, text string) models.Message {
	return models.Message{
		UID:    uid,
		Client: "c1",
		Role:   models.RoleUser,
		Text:   text,
		SentAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMerge_CreatedAppends(t *testing.T) {
	current := []models.Message{msg("m1", "a")}

	next, changed := Merge(current, msg("m2", "b"), Created)

	assert.True(t, changed)
	assert.Equal(t, []models.Message{msg("m1", "a"), msg("m2", "b")}, next)
	assert.Len(t, current, 1, "input must not be modified")
}

func TestMerge_CreatedDuplicateIgnored(t *testing.T) {
	current := []models.Message{msg("m1", "a")}

	next, changed := Merge(current, msg("m1", "something else"), Created)

	assert.False(t, changed)
	assert.Equal(t, []models.Message{msg("m1", "a")}, next)
}

func TestMerge_UpdatedReplacesInPlace(t *testing.T) {
	current := []models.Message{msg("m1", "a"), msg("m2", "x")}

	next, changed := Merge(current, msg("m1", "b"), Updated)

	assert.True(t, changed)
	assert.Equal(t, []models.Message{msg("m1", "b"), msg("m2", "x")}, next)
	assert.Equal(t, "a", current[0].Text, "input must not be modified")
}

func TestMerge_UpdatedUnknownDropped(t *testing.T) {
	current := []models.Message{msg("m1", "a")}

	next, changed := Merge(current, msg("m2", "b"), Updated)

	assert.False(t, changed)
	assert.Equal(t, []models.Message{msg("m1", "a")}, next)
}

func TestMerge_IntoEmpty(t *testing.T) {
	next, changed := Merge(nil, msg("m1", "a"), Created)
	assert.True(t, changed)
	assert.Len(t, next, 1)

	next, changed = Merge(nil, msg("m1", "a"), Updated)
	assert.False(t, changed)
	assert.Empty(t, next)
}
