package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threespace/site-backend/internal/apperr"
)

func testSchema() *Schema {
	return New(
		Field{Name: "title", Kind: String, Required: true, MaxLen: 10},
		Field{Name: "level", Aliases: []string{"Level"}, Kind: String, Enum: []string{"Low", "High"}, EnumNoun: "level"},
		Field{Name: "minutes", Kind: Int, Required: true, Min: MinValue(1)},
		Field{Name: "price", Kind: Number},
		Field{Name: "flag", Kind: Bool, Default: false},
		Field{Name: "items", Kind: StringList, Required: true, MinItems: 1,
			RequiredMessage: "at least one item is required", MinItemsMessage: "at least one item is required"},
		Field{Name: "tags", Kind: StringList, SplitComma: true, Default: []string{}},
		Field{Name: "email", Kind: String, Email: true},
	)
}

func violationsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	out := map[string]string{}
	for _, v := range ve.Violations {
		out[v.Field] = v.Reason
	}
	return out
}

func TestValidate_CreateAcceptsAndNormalizes(t *testing.T) {
	out, err := testSchema().Validate(map[string]any{
		"title":   "hello",
		"Level":   "High",
		"minutes": "3",
		"price":   "9.5",
		"items":   []any{"a", "b"},
		"tags":    "x, y,,z ",
		"unknown": "dropped",
	}, Create)
	require.NoError(t, err)
	assert.Equal(t, "hello", out["title"])
	assert.Equal(t, "High", out["level"])
	assert.Equal(t, int64(3), out["minutes"])
	assert.Equal(t, 9.5, out["price"])
	assert.Equal(t, false, out["flag"])
	assert.Equal(t, []string{"a", "b"}, out["items"])
	assert.Equal(t, []string{"x", "y", "z"}, out["tags"])
	assert.NotContains(t, out, "unknown")
	assert.NotContains(t, out, "email")
}

func TestValidate_CreateReportsEveryViolation(t *testing.T) {
	v := violationsOf(t, func() error {
		_, err := testSchema().Validate(map[string]any{
			"title":   strings.Repeat("x", 11),
			"level":   "Medium",
			"minutes": 0,
			"items":   []any{},
			"email":   "not-an-email",
		}, Create)
		return err
	}())
	assert.Equal(t, "title cannot exceed 10 characters", v["title"])
	assert.Contains(t, v["level"], `"Medium" is not a valid level`)
	assert.Contains(t, v["level"], "Low, High")
	assert.Equal(t, "minutes must be at least 1", v["minutes"])
	assert.Equal(t, "at least one item is required", v["items"])
	assert.Equal(t, "Invalid email format", v["email"])
}

func TestValidate_MissingArrayIsNotDefaultedIntoPassing(t *testing.T) {
	v := violationsOf(t, func() error {
		_, err := testSchema().Validate(map[string]any{"title": "t", "minutes": 2}, Create)
		return err
	}())
	assert.Equal(t, "at least one item is required", v["items"])
}

func TestValidate_UpdateTreatsOmittedAsUnchanged(t *testing.T) {
	out, err := testSchema().Validate(map[string]any{"price": 3}, Update)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"price": 3.0}, out)
}

func TestValidate_UpdateStillChecksSuppliedFields(t *testing.T) {
	v := violationsOf(t, func() error {
		_, err := testSchema().Validate(map[string]any{"title": "", "items": []string{}}, Update)
		return err
	}())
	assert.Equal(t, "title is required", v["title"])
	assert.Equal(t, "at least one item is required", v["items"])
}

func TestValidate_UpdateNullClearsOptionalField(t *testing.T) {
	out, err := testSchema().Validate(map[string]any{"price": nil, "flag": ""}, Update)
	require.NoError(t, err)
	assert.Contains(t, out, "price")
	assert.Nil(t, out["price"])
	assert.Equal(t, false, out["flag"])
}

func TestValidate_TypeErrors(t *testing.T) {
	v := violationsOf(t, func() error {
		_, err := testSchema().Validate(map[string]any{
			"title": 12, "minutes": 1.5, "price": "abc", "flag": "maybe", "items": []any{1},
		}, Create)
		return err
	}())
	assert.Equal(t, "title must be a string", v["title"])
	assert.Equal(t, "minutes must be an integer", v["minutes"])
	assert.Equal(t, "price must be a valid number", v["price"])
	assert.Equal(t, "flag must be a boolean", v["flag"])
	assert.Equal(t, "items must be a list of strings", v["items"])
}

func TestValidate_JSONEncodedListFromForm(t *testing.T) {
	out, err := testSchema().Validate(map[string]any{
		"title": "t", "minutes": "2", "items": `["one","two"]`, "flag": "on",
	}, Create)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, out["items"])
	assert.Equal(t, true, out["flag"])
}

func TestValidate_LengthCountsCharactersNotBytes(t *testing.T) {
	_, err := testSchema().Validate(map[string]any{
		"title": "éééééééééé", "minutes": 1, "items": []string{"a"},
	}, Create)
	require.NoError(t, err)
}

func TestTransformRunsBeforeChecks(t *testing.T) {
	s := New(Field{Name: "body", Kind: String, MaxLen: 3, Transform: strings.TrimSpace})
	out, err := s.Validate(map[string]any{"body": "  abc  "}, Create)
	require.NoError(t, err)
	assert.Equal(t, "abc", out["body"])
}

func TestValidate_IntegerOutOfRange(t *testing.T) {
	for _, raw := range []any{1e19, -1e19, "9.3e18", json.Number("1e300")} {
		v := violationsOf(t, func() error {
			_, err := testSchema().Validate(map[string]any{"title": "t", "minutes": raw, "items": []string{"a"}}, Create)
			return err
		}())
		assert.Equal(t, "minutes must be an integer", v["minutes"], "%v", raw)
	}

	out, err := testSchema().Validate(map[string]any{"title": "t", "minutes": "9000000000000000000", "items": []string{"a"}}, Create)
	require.NoError(t, err)
	assert.Equal(t, int64(9000000000000000000), out["minutes"])
}
