package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduper_CollapsesRepeats(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("info", "text", &buf)
	d := NewDeduper(l.WithField("component", "test"), time.Hour)

	d.Infof("waiting %s", "2s")
	d.Infof("waiting %s", "2s")
	d.Infof("waiting %s", "2s")
	d.Infof("done")
	d.Flush()

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "waiting 2s (3)")
	assert.Contains(t, lines[1], "done")
	assert.NotContains(t, lines[1], "(1)")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithOutput("loud", "json", &bytes.Buffer{})
	assert.Equal(t, "info", l.GetLevel().String())
}
