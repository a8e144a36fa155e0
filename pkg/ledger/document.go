package ledger

import (
	"regexp"
	"strings"
)

// Fixed layout markers of the persisted ledger text. These strings are the
// wire contract: changing any of them changes the on-store format.
const (
	// DefaultTitle is synthesized when a document is created lazily on the
	// first write.
	DefaultTitle = "# Task Ledger"

	currentTasksLabel = "**Current tasks**"
	latestChangeLabel = "**Latest change**"
	lastUpdatedPrefix = "Last updated: "
	addedLabel        = "Added:"
	removedLabel      = "Removed:"
	headingPrefix     = "## "
	sectionSeparator  = "---"
	bulletPrefix      = "・"
)

var latestChangeLine = regexp.MustCompile(`^\*\*Latest change\*\* \((.*)\)$`)

// Change is the rendered diff summary attached to a section. It is
// historical/informational only; the authoritative state is the current
// tasks list.
type Change struct {
	Timestamp string   `json:"timestamp"`
	Added     []string `json:"added,omitempty"`
	Removed   []string `json:"removed,omitempty"`
}

// Section is the contiguous region of the document owned by one author,
// keyed by the author's display name.
type Section struct {
	Author      string   `json:"author"`
	LastUpdated string   `json:"last_updated"`
	Tasks       []string `json:"tasks"`
	Change      *Change  `json:"change,omitempty"`
}

// Document is the structured form of the shared ledger: a title line and an
// ordered sequence of author sections. It is the sole durable state; there
// is no side database.
type Document struct {
	Title    string
	Sections []Section
}

// NewDocument returns an empty document with the default title.
func NewDocument() *Document {
	return &Document{Title: DefaultTitle}
}

// Section returns the section owned by the given author, or nil if absent.
// Duplicate sections for one author violate the merge invariant; if present
// anyway, the last occurrence wins.
func (d *Document) Section(author string) *Section {
	for i := len(d.Sections) - 1; i >= 0; i-- {
		if d.Sections[i].Author == author {
			return &d.Sections[i]
		}
	}
	return nil
}

// Upsert replaces the author's section with the given one. Every existing
// section belonging to that author is removed and the new section is appended
// at the end (most-recently-updated author last). Other authors' sections are
// not touched.
func (d *Document) Upsert(s Section) {
	kept := d.Sections[:0]
	for _, existing := range d.Sections {
		if existing.Author != s.Author {
			kept = append(kept, existing)
		}
	}
	d.Sections = append(kept, s)
}

// Authors returns the author names in document order.
func (d *Document) Authors() []string {
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Author)
	}
	return names
}

// Render serializes the document to its persisted text form. The output is
// deterministic: rendering the result of ParseDocument reproduces the input
// for any document this package produced.
func (d *Document) Render() string {
	var b strings.Builder

	title := d.Title
	if title == "" {
		title = DefaultTitle
	}
	b.WriteString(title)
	b.WriteString("\n")

	for _, s := range d.Sections {
		b.WriteString("\n")
		s.render(&b)
	}

	return b.String()
}

func (s *Section) render(b *strings.Builder) {
	b.WriteString(headingPrefix + s.Author + "\n")
	if s.LastUpdated != "" {
		b.WriteString(lastUpdatedPrefix + s.LastUpdated + "\n")
	}
	b.WriteString(currentTasksLabel + "\n")
	for _, task := range s.Tasks {
		b.WriteString(bulletPrefix + task + "\n")
	}
	b.WriteString("\n")

	if s.Change != nil && (len(s.Change.Added) > 0 || len(s.Change.Removed) > 0) {
		b.WriteString(latestChangeLabel + " (" + s.Change.Timestamp + ")\n")
		if len(s.Change.Added) > 0 {
			b.WriteString(addedLabel + "\n")
			for _, task := range s.Change.Added {
				b.WriteString(bulletPrefix + task + "\n")
			}
		}
		if len(s.Change.Removed) > 0 {
			b.WriteString(removedLabel + "\n")
			for _, task := range s.Change.Removed {
				b.WriteString(bulletPrefix + task + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionSeparator + "\n")
}

// collection targets while scanning a section body
type parseMode int

const (
	modeNone parseMode = iota
	modeTasks
	modeAdded
	modeRemoved
)

// ParseDocument deserializes persisted ledger text into the structured model.
// It never fails: missing or malformed markers degrade to empty sections or
// empty task lists, so a damaged document reads as empty prior state rather
// than aborting an update.
func ParseDocument(text string) *Document {
	doc := &Document{}
	mode := modeNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, headingPrefix) {
			doc.Sections = append(doc.Sections, Section{
				Author: strings.TrimSpace(strings.TrimPrefix(line, headingPrefix)),
			})
			mode = modeNone
			continue
		}

		if len(doc.Sections) == 0 {
			if doc.Title == "" && strings.HasPrefix(line, "# ") {
				doc.Title = line
			}
			continue
		}
		cur := &doc.Sections[len(doc.Sections)-1]

		switch {
		case line == "":
			// Blank lines do not terminate a bullet run.

		case strings.HasPrefix(line, lastUpdatedPrefix):
			cur.LastUpdated = strings.TrimSpace(strings.TrimPrefix(line, lastUpdatedPrefix))
			mode = modeNone

		case line == currentTasksLabel:
			mode = modeTasks

		case latestChangeLine.MatchString(line):
			m := latestChangeLine.FindStringSubmatch(line)
			cur.Change = &Change{Timestamp: m[1]}
			mode = modeNone

		case line == addedLabel && cur.Change != nil:
			mode = modeAdded

		case line == removedLabel && cur.Change != nil:
			mode = modeRemoved

		case IsBulletLine(line):
			body, _ := taskBody(line)
			switch mode {
			case modeTasks:
				cur.Tasks = append(cur.Tasks, body)
			case modeAdded:
				cur.Change.Added = append(cur.Change.Added, body)
			case modeRemoved:
				cur.Change.Removed = append(cur.Change.Removed, body)
			}

		default:
			// Any other non-bullet, non-blank line (the section separator,
			// stray prose) ends the current bullet run.
			mode = modeNone
		}
	}

	return doc
}

// CurrentTasks returns the previously recorded task list for the author, or
// an empty list if the author has no section or the section is malformed.
func (d *Document) CurrentTasks(author string) []string {
	s := d.Section(author)
	if s == nil {
		return nil
	}
	return s.Tasks
}
