package fetch

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Regex-based HTML to markdown conversion over readability's cleaned
// article HTML. Readability already strips scripts, styles, and chrome, so
// a handful of block and inline rules cover what remains.
var (
	headingRE   = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	anchorRE    = regexp.MustCompile(`(?is)<a[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	boldRE      = regexp.MustCompile(`(?is)<(?:b|strong)[^>]*>(.*?)</(?:b|strong)>`)
	italicRE    = regexp.MustCompile(`(?is)<(?:i|em)[^>]*>(.*?)</(?:i|em)>`)
	codeRE      = regexp.MustCompile(`(?is)<code[^>]*>(.*?)</code>`)
	preRE       = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	listItemRE  = regexp.MustCompile(`(?is)<li[^>]*>(.*?)</li>`)
	paraCloseRE = regexp.MustCompile(`(?i)</(?:p|div|ul|ol|blockquote|table|tr)>`)
	breakRE     = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTagRE    = regexp.MustCompile(`(?s)<[^>]+>`)
	blankRunRE  = regexp.MustCompile(`\n{3,}`)
)

// htmlToMarkdown converts article HTML into readable markdown.
func htmlToMarkdown(page string) string {
	out := page

	out = preRE.ReplaceAllStringFunc(out, func(m string) string {
		inner := preRE.FindStringSubmatch(m)[1]
		inner = anyTagRE.ReplaceAllString(inner, "")
		return "\n```\n" + strings.TrimSpace(html.UnescapeString(inner)) + "\n```\n"
	})
	out = headingRE.ReplaceAllStringFunc(out, func(m string) string {
		sub := headingRE.FindStringSubmatch(m)
		level := int(sub[1][0] - '0')
		return "\n" + strings.Repeat("#", level) + " " + strings.TrimSpace(stripTags(sub[2])) + "\n"
	})
	out = anchorRE.ReplaceAllStringFunc(out, func(m string) string {
		sub := anchorRE.FindStringSubmatch(m)
		text := strings.TrimSpace(stripTags(sub[2]))
		href := strings.TrimSpace(sub[1])
		if text == "" || href == "" || strings.HasPrefix(href, "#") {
			return text
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	})
	out = boldRE.ReplaceAllString(out, "**$1**")
	out = italicRE.ReplaceAllString(out, "*$1*")
	out = codeRE.ReplaceAllString(out, "`$1`")
	out = listItemRE.ReplaceAllString(out, "\n- $1")
	out = paraCloseRE.ReplaceAllString(out, "\n\n")
	out = breakRE.ReplaceAllString(out, "\n")

	out = anyTagRE.ReplaceAllString(out, "")
	out = html.UnescapeString(out)

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(line, " \t"), " \t")
	}
	out = strings.Join(lines, "\n")
	out = blankRunRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func stripTags(s string) string {
	return anyTagRE.ReplaceAllString(s, "")
}
