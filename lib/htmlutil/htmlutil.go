package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText returns the visible text of a selection with non-printable
// runes removed and runs of whitespace collapsed to single spaces.
// table cells on the portal tend to carry
// stray &nbsp; and newline padding.
func CleanText(sel *goquery.Selection) string {
	var buffer strings.Builder
	for _, node := range sel.Nodes {
		buffer.WriteString(GetText(node))
	}
	text := buffer.String()
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = removeNonPrintable(text)
	text = strings.Trim(text, " \t\n")
	text = innerWhitespace.ReplaceAllString(text, " ")
	return text
}
