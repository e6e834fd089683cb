package autostart

import (
	"bytes"
	"strings"
)

const desktopEntryGroup = "Desktop Entry"

// desktopEntry is a line-preserving view of a freedesktop desktop entry.
type desktopEntry struct {
	lines []string
}

func parseDesktopEntry(data []byte) *desktopEntry {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return &desktopEntry{}
	}
	return &desktopEntry{lines: strings.Split(text, "\n")}
}

func groupName(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || trimmed[0] != '[' || trimmed[len(trimmed)-1] != ']' {
		return "", false
	}
	return trimmed[1 : len(trimmed)-1], true
}

func splitKey(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return "", "", false
	}
	key, value, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// find returns the index of key inside group, the index of the group header
// and the index of the last key line in the group. Missing items are -1.
func (e *desktopEntry) find(group, key string) (keyIdx, headerIdx, lastIdx int) {
	keyIdx, headerIdx, lastIdx = -1, -1, -1
	current := ""
	for i, line := range e.lines {
		if name, ok := groupName(line); ok {
			current = name
			if name == group && headerIdx == -1 {
				headerIdx = i
				lastIdx = i
			}
			continue
		}
		if current != group {
			continue
		}
		k, _, ok := splitKey(line)
		if !ok {
			continue
		}
		lastIdx = i
		if k == key && keyIdx == -1 {
			keyIdx = i
		}
	}
	return keyIdx, headerIdx, lastIdx
}

// Bool reads a boolean key. ok is false when the key is absent.
func (e *desktopEntry) Bool(group, key string) (value, ok bool) {
	idx, _, _ := e.find(group, key)
	if idx < 0 {
		return false, false
	}
	_, raw, _ := splitKey(e.lines[idx])
	return parseBool(raw), true
}

// SetBool writes key, adding the group when needed.
func (e *desktopEntry) SetBool(group, key string, value bool) {
	line := key + "=" + formatBool(value)
	idx, header, last := e.find(group, key)
	switch {
	case idx >= 0:
		e.lines[idx] = line
	case header >= 0:
		e.lines = append(e.lines[:last+1], append([]string{line}, e.lines[last+1:]...)...)
	default:
		if len(e.lines) > 0 {
			e.lines = append(e.lines, "")
		}
		e.lines = append(e.lines, "["+group+"]", line)
	}
}

func (e *desktopEntry) Bytes() []byte {
	var buf bytes.Buffer
	for _, line := range e.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}
