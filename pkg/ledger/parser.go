package ledger

import (
	"regexp"
	"strings"
)

// bulletLine matches a task line after trimming: one or more bullet markers
// (・, -, *, +) or a numeric ordinal followed by a dot, then the task body.
// The whole marker run and any whitespace after it are stripped.
var bulletLine = regexp.MustCompile(`^(?:[・\-*+]+|[0-9]+\.)\s*(.+)$`)

// ParseTasks extracts an ordered, deduplicated task list from free-form
// message text. Lines that are not bullet lines are treated as prose and
// ignored. Duplicate tasks keep their first occurrence. An empty result is
// not an error; the caller decides how to treat a task-free message.
func ParseTasks(text string) []string {
	var tasks []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		body, ok := taskBody(line)
		if !ok {
			continue
		}

		if _, dup := seen[body]; dup {
			continue
		}
		seen[body] = struct{}{}
		tasks = append(tasks, body)
	}

	return tasks
}

// IsBulletLine reports whether a single line would be parsed as a task line.
// Used by the document serializer to decide where a bullet run ends.
func IsBulletLine(line string) bool {
	_, ok := taskBody(line)
	return ok
}

// taskBody extracts the task text from one raw line, or reports false for
// prose, blank lines, and marker-only lines such as a "---" separator.
func taskBody(line string) (string, bool) {
	m := bulletLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}

	body := strings.TrimSpace(m[1])
	if body == "" || strings.Trim(body, "・-*+") == "" {
		return "", false
	}
	return body, true
}
