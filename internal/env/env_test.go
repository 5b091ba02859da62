package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	t.Setenv("PLANNER_TEST_STRING", "json")
	assert.Equal(t, "json", String("PLANNER_TEST_STRING", "text"))
	assert.Equal(t, "text", String("PLANNER_TEST_STRING_UNSET", "text"))
}

func TestDuration(t *testing.T) {
	t.Setenv("PLANNER_TEST_DURATION", "90s")
	d, err := Duration("PLANNER_TEST_DURATION", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = Duration("PLANNER_TEST_DURATION_UNSET", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("PLANNER_TEST_DURATION", "soon")
	_, err = Duration("PLANNER_TEST_DURATION", time.Second)
	assert.ErrorContains(t, err, "parse PLANNER_TEST_DURATION")
}

func TestBool(t *testing.T) {
	t.Setenv("PLANNER_TEST_BOOL", "true")
	b, err := Bool("PLANNER_TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, b)

	t.Setenv("PLANNER_TEST_BOOL", "maybe")
	_, err = Bool("PLANNER_TEST_BOOL", false)
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	t.Setenv("PLANNER_TEST_INT", "8080")
	n, err := Int("PLANNER_TEST_INT", 0)
	require.NoError(t, err)
	assert.Equal(t, 8080, n)

	n, err = Int("PLANNER_TEST_INT_UNSET", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	t.Setenv("PLANNER_TEST_INT", "eighty")
	_, err = Int("PLANNER_TEST_INT", 0)
	assert.ErrorContains(t, err, "parse PLANNER_TEST_INT")
}
