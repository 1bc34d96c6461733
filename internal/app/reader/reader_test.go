package reader

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tagbox/internal/domain/tag"
)

// mockDevice is a scripted reader device.
type mockDevice struct {
	presenceErrs []error // consumed per RequestPresence call, nil when exhausted
	uid          tag.UID
	anticollErr  error
	selectErr    error
	blocks       [][]byte

	presenceCalls int
	selectCalls   int
	readCalls     int
	closed        bool
}

func (m *mockDevice) RequestPresence() error {
	m.presenceCalls++
	if len(m.presenceErrs) == 0 {
		return nil
	}
	err := m.presenceErrs[0]
	m.presenceErrs = m.presenceErrs[1:]
	return err
}

func (m *mockDevice) Anticollision() (tag.UID, error) {
	if m.anticollErr != nil {
		return nil, m.anticollErr
	}
	return m.uid, nil
}

func (m *mockDevice) SelectTag(uid tag.UID) (int, error) {
	m.selectCalls++
	if m.selectErr != nil {
		return 0, m.selectErr
	}
	return 4, nil
}

func (m *mockDevice) ReadBlock(blockSize, index int) ([]byte, error) {
	m.readCalls++
	if index >= len(m.blocks) {
		return nil, errors.New("read failed")
	}
	return m.blocks[index], nil
}

func (m *mockDevice) Close() error {
	m.closed = true
	return nil
}

func TestReader_PollOnce_NewTag(t *testing.T) {
	dev := &mockDevice{
		uid:    tag.UID{1, 2, 3, 4},
		blocks: [][]byte{[]byte("Stor"), {'y', 0, 0, 0}},
	}
	r := New(dev, Config{})

	out := r.PollOnce(nil)

	require.Equal(t, OutcomeNewTag, out.Kind)
	assert.Equal(t, tag.UID{1, 2, 3, 4}, out.UID)
	assert.Equal(t, "Story", out.Text)
	assert.Equal(t, 3, dev.readCalls, "reads until the first failing block")
	assert.True(t, out.Succeeded())
}

func TestReader_PollOnce_SameTagSkipsMemory(t *testing.T) {
	dev := &mockDevice{uid: tag.UID{1, 2, 3, 4}, blocks: [][]byte{[]byte("x")}}
	r := New(dev, Config{})

	out := r.PollOnce(tag.UID{1, 2, 3, 4})

	assert.Equal(t, OutcomeSameTag, out.Kind)
	assert.Equal(t, 0, dev.selectCalls)
	assert.Equal(t, 0, dev.readCalls)
}

func TestReader_PollOnce_PresenceRetry(t *testing.T) {
	tests := []struct {
		name          string
		presenceErrs  []error
		expectedKind  OutcomeKind
		expectedCalls int
	}{
		{
			name:          "first request fails, retry succeeds",
			presenceErrs:  []error{ErrNoTag},
			expectedKind:  OutcomeNewTag,
			expectedCalls: 2,
		},
		{
			name:          "both requests fail",
			presenceErrs:  []error{ErrNoTag, ErrNoTag},
			expectedKind:  OutcomeNoTag,
			expectedCalls: 2,
		},
		{
			name:          "first request succeeds",
			expectedKind:  OutcomeNewTag,
			expectedCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &mockDevice{
				presenceErrs: tt.presenceErrs,
				uid:          tag.UID{9, 9, 9, 9},
				blocks:       [][]byte{[]byte("abc")},
			}
			out := New(dev, Config{}).PollOnce(nil)
			assert.Equal(t, tt.expectedKind, out.Kind)
			assert.Equal(t, tt.expectedCalls, dev.presenceCalls)
		})
	}
}

func TestReader_PollOnce_Failures(t *testing.T) {
	t.Run("anticollision fails", func(t *testing.T) {
		dev := &mockDevice{anticollErr: errors.New("collision")}
		out := New(dev, Config{}).PollOnce(nil)
		assert.Equal(t, OutcomeFailure, out.Kind)
		assert.Error(t, out.Err)
		assert.False(t, out.Succeeded())
	})

	t.Run("empty uid", func(t *testing.T) {
		dev := &mockDevice{}
		out := New(dev, Config{}).PollOnce(nil)
		assert.Equal(t, OutcomeFailure, out.Kind)
	})

	t.Run("select fails", func(t *testing.T) {
		dev := &mockDevice{uid: tag.UID{1}, selectErr: errors.New("halted")}
		out := New(dev, Config{}).PollOnce(nil)
		assert.Equal(t, OutcomeFailure, out.Kind)
		assert.Equal(t, 0, dev.readCalls)
	})
}

func TestReader_MaxBlocksBound(t *testing.T) {
	blocks := make([][]byte, 100)
	for i := range blocks {
		blocks[i] = []byte{'a'}
	}
	dev := &mockDevice{uid: tag.UID{1}, blocks: blocks}

	out := New(dev, Config{MaxBlocks: 8}).PollOnce(nil)

	assert.Equal(t, OutcomeNewTag, out.Kind)
	assert.Equal(t, 8, dev.readCalls)
	assert.Len(t, out.Raw, 8)
}

func TestReader_RawMode(t *testing.T) {
	dev := &mockDevice{uid: tag.UID{1}, blocks: [][]byte{{0x02, 'a', 'b', 'c'}}}

	framed := New(dev, Config{}).PollOnce(nil)
	assert.Equal(t, "c", framed.Text)

	raw := New(dev, Config{RawMode: true}).PollOnce(nil)
	assert.Equal(t, "abc", raw.Text)
}

func TestReader_Close(t *testing.T) {
	dev := &mockDevice{}
	require.NoError(t, New(dev, Config{}).Close())
	assert.True(t, dev.closed)
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "no_tag", OutcomeNoTag.String())
	assert.Equal(t, "same_tag", OutcomeSameTag.String())
	assert.Equal(t, "new_tag", OutcomeNewTag.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "unknown", OutcomeKind(99).String())
}
