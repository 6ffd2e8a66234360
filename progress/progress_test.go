package progress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trademe-analyzer/models"
	"trademe-analyzer/utils"
)

func TestEmitterStampsRunID(t *testing.T) {
	var got []Event
	e := NewEmitter(Func(func(ev Event) error {
		got = append(got, ev)
		return nil
	}))

	_, err := uuid.Parse(e.RunID)
	require.NoError(t, err)

	require.NoError(t, e.Progress(150, "over"))
	require.NoError(t, e.Progress(-5, "under"))
	require.NoError(t, e.Complete(&models.AnalysisResult{}))
	require.NoError(t, e.Fail("boom", map[string]string{"url": "x"}))

	require.Len(t, got, 4)
	assert.Equal(t, 100, got[0].Percentage)
	assert.Equal(t, 0, got[1].Percentage)
	assert.Equal(t, KindComplete, got[2].Kind)
	assert.Equal(t, KindError, got[3].Kind)
	assert.Equal(t, "x", got[3].Context["url"])
	for _, ev := range got {
		assert.Equal(t, e.RunID, ev.RunID)
	}
}

func TestChannelNeverBlocks(t *testing.T) {
	c := NewChannel(1)
	assert.NoError(t, c.Report(Event{Kind: KindProgress}))
	assert.ErrorIs(t, c.Report(Event{Kind: KindProgress}), ErrDropped)

	ev := <-c.Events()
	assert.Equal(t, KindProgress, ev.Kind)

	c.Close()
	c.Close()
	assert.ErrorIs(t, c.Report(Event{}), ErrClosed)
	_, open := <-c.Events()
	assert.False(t, open)
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	r := Multi(
		Func(func(Event) error { return boom }),
		Func(func(Event) error { delivered++; return nil }),
	)
	err := r.Report(Event{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, delivered)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Logger: utils.NewLoggerTo(&buf, utils.LevelDebug)}
	require.NoError(t, l.Report(Event{Kind: KindProgress, Percentage: 10, Message: "Scanning page structure..."}))
	assert.Contains(t, buf.String(), " 10% Scanning page structure...")
}
