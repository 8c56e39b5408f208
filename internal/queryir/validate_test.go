package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ParsedPredicatesAreValid(t *testing.T) {
	preds, _ := ParseFilter(map[string]any{"ge": 18, "in": []any{1, 2}})

	result := Validate(preds)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
	assert.NoError(t, result.Err())
}

func TestValidationResult_Err(t *testing.T) {
	err := Validate([]Predicate{Compare{Rel: RelEq}, Member{Rel: RelIn}}).Err()

	require.ErrorIs(t, err, ErrInvalidPredicate)
	assert.Contains(t, err.Error(), "predicate 0: comparison with NULL never matches")
	assert.Contains(t, err.Error(), "predicate 1: empty in list")
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want string
	}{
		{"null comparison", Compare{Rel: RelEq}, "NULL"},
		{"member operator in compare", Compare{Rel: RelIn, Value: 1}, "not a scalar operator"},
		{"unknown operator", &Compare{Rel: "like", Value: 1}, "not a scalar operator"},
		{"collection value", Compare{Rel: RelGt, Value: []int{1}}, "collection"},
		{"empty member", Member{Rel: RelNotIn}, "empty not-in list"},
		{"scalar operator in member", Member{Rel: RelEq, Values: []any{1}}, "not a membership operator"},
		{"blank search", Search{Terms: []string{""}}, "without terms"},
		{"nil", nil, "nil predicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate([]Predicate{tt.pred})

			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Warnings)
			assert.Contains(t, result.Warnings[0], tt.want)
			assert.Contains(t, result.Warnings[0], "predicate 0")
		})
	}
}

func TestRel(t *testing.T) {
	assert.True(t, RelNotIn.Multi())
	assert.False(t, RelLe.Multi())
	assert.True(t, RelGe.Valid())
	assert.False(t, Rel("between").Valid())
	assert.True(t, IsReserved(KeyWord))
	assert.False(t, IsReserved("name"))
}
