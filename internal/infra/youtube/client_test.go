package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"playlist URL", "https://www.youtube.com/playlist?list=PL1234567890", "PL1234567890"},
		{"watch URL with list", "https://www.youtube.com/watch?v=abc&list=PLxyz&index=2", "PLxyz"},
		{"bare ID", "PLbare", "PLbare"},
		{"URL without list", "https://www.youtube.com/watch?v=abc", ""},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPlaylistID(tt.input))
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(0).timeout)
	assert.Equal(t, 5*time.Second, New(5*time.Second).timeout)
}

