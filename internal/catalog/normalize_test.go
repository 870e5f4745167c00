package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLocationID(t *testing.T) {
	t.Parallel()

	t.Run("positive ids become negative", func(t *testing.T) {
		require.Equal(t, int64(-1002392486470), NormalizeLocationID(1002392486470))
	})

	t.Run("negative ids are unchanged", func(t *testing.T) {
		require.Equal(t, int64(-1002392486470), NormalizeLocationID(-1002392486470))
	})

	t.Run("idempotent and never positive", func(t *testing.T) {
		for _, id := range []int64{0, 1, -1, 42, -42, 1002254568649, -1002254568649} {
			once := NormalizeLocationID(id)
			require.LessOrEqual(t, once, int64(0))
			require.Equal(t, once, NormalizeLocationID(once))
		}
	})

	t.Run("zero maps to zero", func(t *testing.T) {
		require.Equal(t, int64(0), NormalizeLocationID(0))
	})
}

func TestCatalogNormalizesOnBuild(t *testing.T) {
	t.Parallel()

	c := New(map[string]map[string]int64{
		"Math": {
			CategoryMain:   100,
			CategoryTheory: -101,
			"Broken":       0,
		},
	})

	id, ok := c.Location("Math", CategoryMain)
	require.True(t, ok)
	require.Equal(t, int64(-100), id)

	id, ok = c.Location("Math", CategoryTheory)
	require.True(t, ok)
	require.Equal(t, int64(-101), id)

	_, ok = c.Location("Math", "Broken")
	require.False(t, ok, "zero-valued entries must be dropped")

	_, ok = c.Location("History", CategoryMain)
	require.False(t, ok)
}
