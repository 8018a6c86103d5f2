package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    string
	Level   string
	Logger  string
	Message string
	Fields  string
	Raw     string
}

// Parse splits a line written by the application logger. Console lines are
// tab separated (time, level, [logger,] [caller,] message, [fields]); JSON
// lines use the logger's key names. Unrecognised lines come back with only
// Raw and Message set.
func Parse(line string) Entry {
	e := Entry{Raw: line, Message: line}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		e.Message = ""
		return e
	}

	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			e.Time = str(obj["timestamp"])
			e.Level = strings.ToUpper(str(obj["level"]))
			e.Logger = str(obj["logger"])
			e.Message = str(obj["message"])
			for _, k := range []string{"timestamp", "level", "logger", "message", "caller", "stacktrace"} {
				delete(obj, k)
			}
			if len(obj) > 0 {
				if b, err := json.Marshal(obj); err == nil {
					e.Fields = string(b)
				}
			}
			return e
		}
	}

	parts := strings.Split(line, "\t")
	if len(parts) < 3 || !isLevel(parts[1]) {
		return e
	}
	e.Time = parts[0]
	e.Level = strings.ToUpper(parts[1])
	rest := parts[2:]
	if n := len(rest); n > 1 && strings.HasPrefix(rest[n-1], "{") {
		e.Fields = rest[n-1]
		rest = rest[:n-1]
	}
	switch len(rest) {
	case 1:
		e.Message = rest[0]
	case 2:
		if isCaller(rest[0]) {
			e.Message = rest[1]
		} else {
			e.Logger, e.Message = rest[0], rest[1]
		}
	default:
		e.Logger = rest[0]
		e.Message = strings.Join(rest[len(rest)-1:], "\t")
	}
	return e
}

var levelRank = map[string]int{
	"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3, "DPANIC": 4, "PANIC": 5, "FATAL": 6,
}

// AtLeast reports whether e is at or above min. Entries without a level
// always pass.
func (e Entry) AtLeast(min string) bool {
	got, ok := levelRank[e.Level]
	if !ok {
		return true
	}
	want, ok := levelRank[strings.ToUpper(strings.TrimSpace(min))]
	if !ok {
		return true
	}
	return got >= want
}

// Filter parses lines and keeps those at or above min.
func Filter(lines []string, min string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e := Parse(line)
		if e.AtLeast(min) {
			out = append(out, e)
		}
	}
	return out
}

func isLevel(s string) bool {
	_, ok := levelRank[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

func isCaller(s string) bool {
	i := strings.LastIndex(s, ".go:")
	return i > 0 && !strings.ContainsAny(s, " ")
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
