package dataservice_test

import (
	"testing"

	"github.com/ChilliBits/particulate-matter-api/internal/dataservice"
	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWindow(t *testing.T) {
	t.Parallel()

	const (
		now    = int64(1_700_000_000_000)
		window = int64(86_400_000)
	)

	tests := []struct {
		name     string
		from, to int64
		want     dataservice.Window
		wantErr  bool
	}{
		{"defaults", 0, 0, dataservice.Window{From: now - window, To: now}, false},
		{"from only", 1_000, 0, dataservice.Window{From: 1_000, To: now}, false},
		{"to only", 0, 1_699_000_000_000, dataservice.Window{From: 1_699_000_000_000 - window, To: 1_699_000_000_000}, false},
		{"to below window clamps from", 0, 5_000, dataservice.Window{From: 0, To: 5_000}, false},
		{"explicit", 10, 20, dataservice.Window{From: 10, To: 20}, false},
		{"single instant", 20, 20, dataservice.Window{From: 20, To: 20}, false},
		{"from after now", now + 1, 0, dataservice.Window{From: now + 1, To: now}, false},
		{"inverted", 10, 5, dataservice.Window{}, true},
		{"negative from", -1, 0, dataservice.Window{}, true},
		{"negative to", 0, -1, dataservice.Window{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dataservice.NormalizeWindow(tt.from, tt.to, now, window)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTimeRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeWindow_Idempotent(t *testing.T) {
	t.Parallel()

	const (
		now    = int64(1_700_000_000_000)
		window = int64(3_600_000)
	)

	inputs := [][2]int64{
		{0, 0}, {1, 0}, {0, 1}, {0, 10}, {5, 10}, {10, 10},
		{0, window}, {0, window + 1}, {now - 1, 0}, {123_456, now},
	}
	for _, in := range inputs {
		once, err := dataservice.NormalizeWindow(in[0], in[1], now, window)
		require.NoError(t, err)

		twice, err := dataservice.NormalizeWindow(once.From, once.To, now, window)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input %v", in)
	}
}
