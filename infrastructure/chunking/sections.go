package chunking

import (
	"regexp"
	"strings"
)

// HeaderSection names the text preceding the first recognized heading.
const HeaderSection = "HEADER"

// sectionPatterns match 10-K item headings on their own lines. Order
// matters only for readability; the suffix words keep ITEM 1 and
// ITEM 1A from shadowing each other.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ITEM\s+1\.?\s*BUSINESS`),
	regexp.MustCompile(`(?i)ITEM\s+1A\.?\s*RISK\s+FACTORS`),
	regexp.MustCompile(`(?i)ITEM\s+7\.?\s*MANAGEMENT.*DISCUSSION.*ANALYSIS`),
	regexp.MustCompile(`(?i)ITEM\s+7A\.?\s*QUANTITATIVE.*QUALITATIVE\s+DISCLOSURES`),
	regexp.MustCompile(`(?i)ITEM\s+8\.?\s*FINANCIAL\s+STATEMENTS`),
	regexp.MustCompile(`(?i)ITEM\s+9\.?\s*CHANGES.*DISAGREEMENTS`),
}

// Section is a named span of filing text.
type Section struct {
	name string
	text string
}

// Name returns the section heading, or HeaderSection for the preamble.
func (s Section) Name() string { return s.name }

// Text returns the section content including its heading line.
func (s Section) Text() string { return s.text }

// SplitSections splits cleaned filing text into item sections by
// scanning for heading lines. Text before the first heading lands in
// the HEADER section. Sections appear in document order; empty sections
// are dropped. Text with no recognized headings comes back as a single
// HEADER section.
func SplitSections(text string) []Section {
	var sections []Section
	current := HeaderSection
	var lines []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content != "" {
			sections = append(sections, Section{name: current, text: content})
		}
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		heading := matchHeading(line)
		if heading != "" {
			flush()
			current = heading
		}
		lines = append(lines, line)
	}
	flush()

	return sections
}

func matchHeading(line string) string {
	for _, pattern := range sectionPatterns {
		if m := pattern.FindString(line); m != "" {
			return strings.ToUpper(spaceRunSection.ReplaceAllString(m, " "))
		}
	}
	return ""
}

var spaceRunSection = regexp.MustCompile(`\s+`)
