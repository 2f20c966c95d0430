package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const envVar = "AVLOG"

type tagLevel struct {
	tag   string
	level Level
}

var (
	tagLevelsMu sync.RWMutex
	tagLevels   []tagLevel
)

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", envVar, err)
	}
}

// Configure parses comma-separated "tag=level" directives. A directive without
// "tag=" sets the default level. Existing tagged loggers are updated in place,
// so Configure should be called during startup, before logging goroutines
// run.
func Configure(directives string) error {
	defer refreshTagged()

	var firstErr error
	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, err := parseLevel(v[len(v)-1])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("directive '%s': %v", d, err)
			}
			continue
		}
		if len(v) == 1 {
			defaultLevel = level
			DefaultLogger.Level = level
		} else {
			setTagLevel(v[0], level)
		}
	}
	return firstErr
}

func setTagLevel(tag string, level Level) {
	tagLevelsMu.Lock()
	defer tagLevelsMu.Unlock()
	for i := range tagLevels {
		if tagLevels[i].tag == tag {
			tagLevels[i].level = level
			return
		}
	}
	tagLevels = append(tagLevels, tagLevel{tag, level})
}

func refreshTagged() {
	taggedMu.Lock()
	defer taggedMu.Unlock()
	for _, l := range tagged {
		l.Level = determineLevel(l.Tag, defaultLevel)
	}
}

func determineLevel(tag string, fallback Level) Level {
	tagLevelsMu.RLock()
	defer tagLevelsMu.RUnlock()
	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	return fallback
}
