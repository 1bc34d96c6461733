package resume

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookmark_Matches(t *testing.T) {
	b := &Bookmark{Token: "Story"}
	assert.True(t, b.Matches("story"))
	assert.True(t, b.Matches("STORY"))
	assert.False(t, b.Matches("music"))

	var none *Bookmark
	assert.False(t, none.Matches("story"))
}

func TestBookmark_SeekTarget(t *testing.T) {
	tests := []struct {
		name    string
		offset  time.Duration
		backoff time.Duration
		want    time.Duration
	}{
		{"offset beyond backoff", 10 * time.Second, 3 * time.Second, 7 * time.Second},
		{"offset equal to backoff", 3 * time.Second, 3 * time.Second, 0},
		{"offset below backoff", time.Second, 3 * time.Second, 0},
		{"no backoff", 5 * time.Second, 0, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Bookmark{Offset: tt.offset}
			assert.Equal(t, tt.want, b.SeekTarget(tt.backoff))
		})
	}

	var none *Bookmark
	assert.Equal(t, time.Duration(0), none.SeekTarget(time.Second))
}
