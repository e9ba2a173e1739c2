package scout

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	citationRE = regexp.MustCompile(`\[(\d+)\]`)
	urlRE      = regexp.MustCompile(`(?i)https?://[^\s<>"')\]]+`)
	// sourceBlockRE detects an existing "**Sources:**" section so one is not
	// appended twice.
	sourceBlockRE = regexp.MustCompile(`(?i)\*\*Sources?:?\*\*:?`)
)

// ExtractCitations matches the [n] markers in content against the source list
// (source i+1 corresponds to citation number i+1). If content has no markers
// at all, every source becomes a citation so the UI still gets a full list.
func ExtractCitations(content string, sources []Source) []Citation {
	numbers := citationNumbers(content)

	var citations []Citation
	for i, src := range sources {
		n := i + 1
		if _, cited := numbers[n]; cited || len(numbers) == 0 {
			citations = append(citations, Citation{
				Number: n,
				URL:    src.URL,
				Title:  src.Title,
			})
		}
	}
	return citations
}

// FormatCitationsMarkdown renders citations as a markdown sources section.
// Returns "" for an empty list.
func FormatCitationsMarkdown(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	lines := []string{"", "**Sources:**"}
	for _, c := range citations {
		if c.URL != "" {
			lines = append(lines, fmt.Sprintf("[%d] [%s](%s)", c.Number, c.Title, c.URL))
		} else {
			lines = append(lines, fmt.Sprintf("[%d] %s", c.Number, c.Title))
		}
	}
	return strings.Join(lines, "\n")
}

// AddSources appends a sources section to content unless one is already
// present. Idempotent.
func AddSources(content string, sources []Source) string {
	if sourceBlockRE.MatchString(content) {
		return content
	}
	citations := make([]Citation, 0, len(sources))
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		if title == "" {
			title = "Unknown"
		}
		citations = append(citations, Citation{Number: i + 1, URL: src.URL, Title: title})
	}
	section := FormatCitationsMarkdown(citations)
	if section == "" {
		return content
	}
	return strings.TrimRight(content, " \t\n") + "\n" + section
}

// RenumberCitations rewrites citation markers to a dense 1..n sequence in
// ascending order of the original numbers. Returns the old-to-new mapping.
func RenumberCitations(content string) (string, map[int]int) {
	numbers := citationNumbers(content)
	if len(numbers) == 0 {
		return content, map[int]int{}
	}

	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	mapping := make(map[int]int, len(sorted))
	for i, old := range sorted {
		mapping[old] = i + 1
	}

	renumbered := citationRE.ReplaceAllStringFunc(content, func(m string) string {
		old, _ := strconv.Atoi(m[1 : len(m)-1])
		return fmt.Sprintf("[%d]", mapping[old])
	})
	return renumbered, mapping
}

// ValidateCitations reports markers that point outside 1..sourceCount.
func ValidateCitations(content string, sourceCount int) []string {
	var errs []string
	numbers := citationNumbers(content)
	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)
	for _, n := range sorted {
		if n < 1 {
			errs = append(errs, fmt.Sprintf("Invalid citation number: [%d]", n))
		} else if n > sourceCount {
			errs = append(errs, fmt.Sprintf("Citation [%d] has no corresponding source (only %d sources available)", n, sourceCount))
		}
	}
	return errs
}

// ExtractInlineURLs pulls unique URLs from free text, first-seen order,
// stripping trailing punctuation.
func ExtractInlineURLs(text string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range urlRE.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?)")
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// CitationSummary renders a compact "N sources: domain, domain" line for
// status displays.
func CitationSummary(citations []Citation, maxSources int) string {
	if len(citations) == 0 {
		return "No sources"
	}
	shown := citations
	extra := ""
	if len(citations) > maxSources {
		shown = citations[:maxSources]
		extra = fmt.Sprintf(" (+%d more)", len(citations)-maxSources)
	}
	domains := make([]string, 0, len(shown))
	for _, c := range shown {
		if c.URL != "" {
			domains = append(domains, displayDomain(c.URL))
		}
	}
	return fmt.Sprintf("%d sources: %s%s", len(citations), strings.Join(domains, ", "), extra)
}

func displayDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return truncate(raw, 30)
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func citationNumbers(content string) map[int]struct{} {
	numbers := make(map[int]struct{})
	for _, m := range citationRE.FindAllStringSubmatch(content, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers[n] = struct{}{}
	}
	return numbers
}
