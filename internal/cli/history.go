package cli

import (
	"os"
	"strings"
)

// HistoryFileName is where chat prompts are appended, one per line, in
// the working directory.
const HistoryFileName = ".factorio_chat_history"

// promptHistory records user prompts across sessions. Everything here is
// best effort: a broken history file must never take the chat down, so
// errors are swallowed and Append degrades to a no-op.
type promptHistory struct {
	file *os.File
}

// openPromptHistory trims the file at path to its last maxEntries lines
// and opens it for appending. maxEntries <= 0 keeps the file unbounded.
func openPromptHistory(path string, maxEntries int) *promptHistory {
	trimHistoryFile(path, maxEntries)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &promptHistory{}
	}
	return &promptHistory{file: file}
}

func (h *promptHistory) Append(line string) {
	if h.file == nil || strings.TrimSpace(line) == "" {
		return
	}
	_, _ = h.file.WriteString(line + "\n")
}

func (h *promptHistory) Close() {
	if h.file != nil {
		_ = h.file.Close()
	}
}

func trimHistoryFile(path string, maxEntries int) {
	if maxEntries <= 0 {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= maxEntries {
		return
	}
	kept := lines[len(lines)-maxEntries:]
	_ = os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0o644)
}
