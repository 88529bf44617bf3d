// Package history manages persistent input history for the chat prompt.
package history

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tutorchat-ai/tutorchat/internal/logging"
)

// MaxEntries caps how many lines are retained from disk at load time.
const MaxEntries = 1000

// History holds past submitted lines and supports shell-style navigation.
// The on-disk file is append-only: past entries are never rewritten.
type History struct {
	mu        sync.Mutex
	path      string
	entries   []string
	index     int
	tempInput string
}

// Load reads history from the given file. A missing or unreadable file is
// not an error; navigation simply starts empty.
func Load(path string) *History {
	h := &History{path: path, index: -1}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("path", path).Msg("failed to read input history")
		}
		return h
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if len(h.entries) > MaxEntries {
		h.entries = h.entries[len(h.entries)-MaxEntries:]
	}

	return h
}

// Add appends a line to history, skipping blanks and consecutive
// duplicates, and appends it to the history file. Persistence failures are
// logged and otherwise ignored.
func (h *History) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 || h.entries[len(h.entries)-1] != line {
		h.entries = append(h.entries, line)
		h.appendToFile(line)
	}
	h.resetNavigation()
}

// appendToFile appends one line to the history file. Caller holds h.mu.
func (h *History) appendToFile(line string) {
	if h.path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		logging.Warn().Err(err).Msg("failed to create history directory")
		return
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to open history file")
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		logging.Warn().Err(err).Msg("failed to append to history file")
	}
}

// ResetNavigation resets navigation state.
func (h *History) ResetNavigation() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetNavigation()
}

func (h *History) resetNavigation() {
	h.index = -1
	h.tempInput = ""
}

// NavigateUp moves to the previous entry. The in-progress input is stashed
// on the first upward step so NavigateDown can restore it.
func (h *History) NavigateUp(currentInput string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return currentInput
	}

	if h.index == -1 {
		h.tempInput = currentInput
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	}

	return h.entries[h.index]
}

// NavigateDown moves to the next entry, or restores the stashed input when
// navigation runs past the newest entry.
func (h *History) NavigateDown(currentInput string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index == -1 {
		return currentInput
	}

	if h.index < len(h.entries)-1 {
		h.index++
		return h.entries[h.index]
	}

	h.index = -1
	return h.tempInput
}

// Len returns the number of entries held in memory.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
