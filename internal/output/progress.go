package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rohankatakam/prhelper/internal/heuristics"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// ProgressReporter renders ranking progress as a self-overwriting line.
// On a non-terminal it only logs at debug level.
type ProgressReporter struct {
	w           io.Writer
	interactive bool
	logger      *logrus.Logger

	mu      sync.Mutex
	lastLen int
}

// NewProgressReporter reports to f, drawing only when f is a terminal
func NewProgressReporter(f *os.File, logger *logrus.Logger) *ProgressReporter {
	return newProgressReporter(f, term.IsTerminal(int(f.Fd())), logger)
}

func newProgressReporter(w io.Writer, interactive bool, logger *logrus.Logger) *ProgressReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProgressReporter{w: w, interactive: interactive, logger: logger}
}

// Update matches heuristics.ProgressFunc
func (p *ProgressReporter) Update(phase string, done, total int) {
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}

	var line string
	switch phase {
	case heuristics.PhaseFetch:
		line = fmt.Sprintf("Fetching PR files... %d%% for %d PRs", pct, total)
	case heuristics.PhaseScore:
		line = fmt.Sprintf("Computing complexity score... %d%%", pct)
	default:
		line = fmt.Sprintf("%s... %d%%", phase, pct)
	}

	if !p.interactive {
		p.logger.WithFields(logrus.Fields{"phase": phase, "done": done, "total": total}).Debug("Progress")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pad := ""
	if n := p.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lastLen = len(line)
}

// Done clears the progress line
func (p *ProgressReporter) Done() {
	if !p.interactive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastLen > 0 {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.lastLen))
		p.lastLen = 0
	}
}
