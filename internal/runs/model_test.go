package runs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"bug", CategoryBug},
		{"ui_change", CategoryUIChange},
		{"UI Change", CategoryUIChange},
		{"ui-change", CategoryUIChange},
		{" Flaky ", CategoryFlaky},
		{"unknown", CategoryUnknown},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	got, err := ParseCategory("regression")
	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Equal(t, CategoryUnknown, got)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	c := Categories()
	c[0] = "mutated"
	assert.Equal(t, CategoryUnknown, Categories()[0])
}

func TestTestCase_RetriesUsed(t *testing.T) {
	assert.Equal(t, 2, TestCase{RetryCount: "2/3"}.RetriesUsed())
	assert.Equal(t, 0, TestCase{RetryCount: ""}.RetriesUsed())
	assert.Equal(t, 0, TestCase{RetryCount: "x/3"}.RetriesUsed())
}

func TestRun_ParsedDate(t *testing.T) {
	r := Run{Date: "2025-02-28", TestCases: []TestCase{{TestName: "A"}}}
	d, err := r.ParsedDate()
	require.NoError(t, err)
	assert.Equal(t, 28, d.Day())

	_, err = Run{Date: "not-a-date"}.ParsedDate()
	assert.Error(t, err)
}
