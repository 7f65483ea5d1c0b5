package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div>a<span>b<b>c</b></span>d</div>`,
	))
	if err != nil {
		t.Fatal(err)
	}
	div := doc.Find("div")
	require.Len(t, div.Nodes, 1)
	require.Equal(t, "abcd", GetText(div.Nodes[0]))
	require.Equal(t, "", GetText(nil))
}

func TestCleanText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<table><tr><td>  LK: rationale\n\n Zahlen​ </td></tr></table>",
	))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "LK: rationale Zahlen", CleanText(doc.Find("td")))
}
