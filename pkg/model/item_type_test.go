package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemTypeTopic(t *testing.T) {
	assert.Equal(t, "type-1", ItemTypeBoo.Topic())
	assert.Equal(t, "type-2", ItemTypeFoo.Topic())
	assert.Equal(t, "type-4", ItemTypeBaz.Topic())
}

func TestItemTypeString(t *testing.T) {
	assert.Equal(t, "FOO", ItemTypeFoo.String())
	assert.Equal(t, "ItemType(9)", ItemType(9).String())

	got, err := ItemTypeString("baz")
	require.NoError(t, err)
	assert.Equal(t, ItemTypeBaz, got)

	_, err = ItemTypeString("qux")
	assert.Error(t, err)
}

func TestItemTypeJSON(t *testing.T) {
	data, err := json.Marshal(ItemTypeBar)
	require.NoError(t, err)
	assert.Equal(t, `"BAR"`, string(data))

	var got ItemType
	require.NoError(t, json.Unmarshal([]byte(`"BOO"`), &got))
	assert.Equal(t, ItemTypeBoo, got)
}
