package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name     string
		min, max time.Duration
		duration time.Duration
		wantCode string // empty means accepted
	}{
		{"within limits", 2 * time.Minute, 5 * time.Minute, 3 * time.Minute, ""},
		{"too short", 3 * time.Minute, 0, 2 * time.Minute, CodeTooShort},
		{"too long", time.Minute, 5 * time.Minute, 6 * time.Minute, CodeTooLong},
		{"exact min", 3 * time.Minute, 0, 3 * time.Minute, ""},
		{"exact max", time.Minute, 5 * time.Minute, 5 * time.Minute, ""},
		{"no upper bound", 0, 0, 3 * time.Hour, ""},
		{"unknown duration", 2 * time.Minute, 5 * time.Minute, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter(tt.min, tt.max)
			res := f.Check(context.Background(), track.Track{Duration: tt.duration})

			assert.Equal(t, tt.wantCode == "", res.Accepted)
			assert.Equal(t, tt.wantCode, res.Code)
		})
	}
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantMin  time.Duration
		wantMax  time.Duration
		wantErr  bool
	}{
		{"fractional", map[string]any{"min_minutes": 2.5, "max_minutes": 5.0}, 150 * time.Second, 5 * time.Minute, false},
		{"integers", map[string]any{"min_minutes": 2, "max_minutes": 5}, 2 * time.Minute, 5 * time.Minute, false},
		{"strings are weakly typed", map[string]any{"max_minutes": "8"}, 0, 8 * time.Minute, false},
		{"empty uses defaults", map[string]any{}, 0, 0, false},
		{"min greater than max", map[string]any{"min_minutes": 10.0, "max_minutes": 5.0}, 0, 0, true},
		{"negative min", map[string]any{"min_minutes": -1.0}, 0, 0, true},
		{"negative max", map[string]any{"max_minutes": -1.0}, 0, 0, true},
		{"unknown key", map[string]any{"max_minute": 5}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &DurationLimitFilter{}
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMin, f.min)
			assert.Equal(t, tt.wantMax, f.max)
		})
	}
}
