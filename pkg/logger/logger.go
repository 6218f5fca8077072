package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// New builds the process logger. format is "text" or "json"; an unknown
// level falls back to info.
func New(level, format string) *log.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

func NewWithOutput(level, format string, out io.Writer) *log.Logger {
	logger := log.New()
	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	logger.SetOutput(out)

	if lvl, err := log.ParseLevel(level); err != nil {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(lvl)
	}
	return logger
}

// Deduper collapses identical consecutive messages into one line with a
// repeat count, flushed after flushDelay of quiet or on Flush.
type Deduper struct {
	entry      *log.Entry
	mu         sync.Mutex
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
}

func NewDeduper(entry *log.Entry, flushDelay time.Duration) *Deduper {
	return &Deduper{entry: entry, flushDelay: flushDelay}
}

func (d *Deduper) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.entry.Info(d.lastMsg)
	} else {
		d.entry.Infof("%s (%d)", d.lastMsg, d.count)
	}
	d.count = 0
	d.lastMsg = ""
}

func (d *Deduper) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if msg != d.lastMsg {
		d.flush()
		d.lastMsg = msg
	}
	d.count++
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

// Flush writes any pending message immediately.
func (d *Deduper) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.flush()
}
