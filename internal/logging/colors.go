package logging

import (
	"github.com/fatih/color"
)

// Colors used for the level/tag prefix of each log line. fatih/color disables
// them automatically when the destination is not a terminal.
var (
	timestampColor = color.New(color.FgWhite)

	levelColors = map[Level]*color.Color{
		Error: color.New(color.FgRed, color.Bold),
		Warn:  color.New(color.FgRed),
		Info:  color.New(color.Reset),
		Debug: color.New(color.FgGreen),
	}

	traceColor = color.New(color.FgYellow)
)

func (l Level) color() *color.Color {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return traceColor
}

// DisableColor turns off colored output for all loggers, e.g. when logging to
// a file.
func DisableColor() {
	color.NoColor = true
}
