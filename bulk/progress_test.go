package bulk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)

	tracker.Start()
	tracker.Record(false)
	assert.Empty(t, buf.String(), "should wait for the interval")
	tracker.Record(true)
	tracker.Record(false)
	tracker.Record(false)

	done, failed := tracker.Counts()
	assert.Equal(t, 4, done)
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "4/4 (100.0%)")
	assert.Contains(t, buf.String(), "1 failed")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 2, 1)
	tracker.Start()
	for range 5 {
		tracker.Record(false)
	}
	done, _ := tracker.Counts()
	assert.Equal(t, 2, done)
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 100)

	tracker.Start()
	tracker.Record(false)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "1/10 (10.0%)")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")

	buf.Reset()
	tracker.Record(false)
	assert.Empty(t, buf.String(), "records after finish are ignored")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 0)
	tracker.Record(false)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_EmptyTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 1)
	tracker.Start()
	tracker.Finish()
	assert.Contains(t, buf.String(), "0/0 (100.0%)")
}
