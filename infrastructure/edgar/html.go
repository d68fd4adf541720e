package edgar

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var spaceRun = regexp.MustCompile(`[ \t]+`)

// skippedElements are subtrees that carry no filing text.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
	"meta":   true,
}

// blockElements end the current line so section headings stay on their
// own lines for downstream splitting.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true,
	"table": true, "tr": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true,
}

// CleanHTML strips markup from a filing document and returns plain
// text. Block boundaries become newlines, runs of spaces collapse, and
// empty lines are dropped. Malformed markup is tolerated: the parser
// recovers and whatever text it finds is returned.
func CleanHTML(content string) string {
	if content == "" {
		return ""
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return ""
	}

	var b strings.Builder
	collectText(root, &b)

	lines := strings.Split(b.String(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}

	isBlock := n.Type == html.ElementNode && blockElements[n.Data]
	if isBlock {
		b.WriteString("\n")
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, b)
	}
	if isBlock {
		b.WriteString("\n")
	}
}
