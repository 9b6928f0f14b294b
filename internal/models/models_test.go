package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_EncodesAsNumber(t *testing.T) {
	p, err := ParsePrice("650")
	require.NoError(t, err)

	data, err := json.Marshal(DishPatch{Price: &p})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":650}`, string(data))
}

func TestPrice_DecodesStringAndNumber(t *testing.T) {
	var dishes []Dish
	err := json.Unmarshal([]byte(`[{"id":1,"price":"350.50"},{"id":2,"price":420}]`), &dishes)
	require.NoError(t, err)
	require.Len(t, dishes, 2)
	assert.Equal(t, "350.5", dishes[0].Price.String())
	assert.Equal(t, "420", dishes[1].Price.String())
}

func TestFlexString(t *testing.T) {
	var rs []Restaurant
	err := json.Unmarshal([]byte(`[{"id":1,"delivery_time":"30-40 мин"},{"id":2,"delivery_time":25}]`), &rs)
	require.NoError(t, err)
	assert.Equal(t, FlexString("30-40 мин"), rs[0].DeliveryTime)
	assert.Equal(t, FlexString("25"), rs[1].DeliveryTime)
}

func TestDishPatch_IsEmpty(t *testing.T) {
	assert.True(t, DishPatch{}.IsEmpty())
	name := "Pizza"
	assert.False(t, DishPatch{Name: &name}.IsEmpty())
}
