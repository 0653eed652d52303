package transform_test

import (
	"encoding/json"
	"testing"

	"prompetition/pkg/transform"

	"github.com/stretchr/testify/require"
)

func TestToSet(t *testing.T) {
	set, err := transform.ToSet([]any{1.0, 2.0, 1.0})
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.True(t, set.Contains(1.0))
	require.True(t, set.Contains(2.0))

	set, err = transform.ToSet(nil)
	require.NoError(t, err)
	require.Empty(t, set)

	// Strings enumerate per character.
	set, err = transform.ToSet("aba")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, set.Elements())

	_, err = transform.ToSet(42)
	require.Error(t, err)
}

func TestSetMarshalsAsSortedArray(t *testing.T) {
	set, err := transform.ToSet([]string{"b", "a"})
	require.NoError(t, err)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, string(raw))
}
