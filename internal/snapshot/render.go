package snapshot

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

var (
	kindColor  = color.New(color.FgYellow, color.Bold)
	funcColor  = color.New(color.FgCyan)
	stateColor = color.New(color.FgGreen)
)

// Render writes a human-readable stack dump. With colorize false the
// output is plain text suitable for files and pipes.
func (s *Snapshot) Render(w io.Writer, colorize bool) {
	prevNoColor := color.NoColor
	if !colorize {
		color.NoColor = true
		defer func() { color.NoColor = prevNoColor }()
	}

	fmt.Fprintf(w, "%s\n", s.String())
	for i, stack := range s.Stacks {
		switch stack.Kind {
		case "rooted":
			fmt.Fprintf(w, "\n%s #%d (goroutine %d, driver pc %#x)\n",
				kindColor.Sprint("rooted stack"), i, stack.GID, stack.RootPC)
		default:
			fmt.Fprintf(w, "\n%s #%d\n", kindColor.Sprint("suspended leaf"), i)
		}
		for depth, frame := range stack.Frames {
			fmt.Fprintf(w, "  %2d: %s %s (%s:%d) [%s]\n",
				depth,
				fmt.Sprintf("%#012x", frame.PC),
				funcColor.Sprint(frame.Func),
				filepath.Base(frame.File),
				frame.Line,
				stateColor.Sprint(frame.State),
			)
		}
	}
}
