package scout

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractCitationsMatchesMarkers(t *testing.T) {
	sources := []Source{
		{URL: "https://a.example", Title: "A"},
		{URL: "https://b.example", Title: "B"},
		{URL: "https://c.example", Title: "C"},
	}
	citations := ExtractCitations("Claim one [1] and claim three [3].", sources)
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(citations))
	}
	if citations[0].Number != 1 || citations[1].Number != 3 {
		t.Errorf("numbers = %d, %d", citations[0].Number, citations[1].Number)
	}
}

func TestExtractCitationsNoMarkersKeepsAll(t *testing.T) {
	sources := []Source{{URL: "https://a.example", Title: "A"}, {URL: "https://b.example", Title: "B"}}
	citations := ExtractCitations("Uncited prose.", sources)
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(citations))
	}
}

func TestFormatCitationsMarkdown(t *testing.T) {
	out := FormatCitationsMarkdown([]Citation{
		{Number: 1, URL: "https://a.example", Title: "A"},
		{Number: 2, Title: "Offline source"},
	})
	if !strings.Contains(out, "**Sources:**") {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(out, "[1] [A](https://a.example)") {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(out, "[2] Offline source") {
		t.Errorf("got %q", out)
	}
	if FormatCitationsMarkdown(nil) != "" {
		t.Error("empty list should render empty string")
	}
}

func TestAddSourcesAppends(t *testing.T) {
	sources := []Source{{URL: "https://a.example", Title: "A"}}
	out := AddSources("The answer. [1]", sources)
	if !strings.Contains(out, "**Sources:**") {
		t.Errorf("got %q", out)
	}
}

func TestAddSourcesIdempotent(t *testing.T) {
	sources := []Source{{URL: "https://a.example", Title: "A"}}
	once := AddSources("The answer. [1]", sources)
	twice := AddSources(once, sources)
	if once != twice {
		t.Errorf("AddSources not idempotent:\n%q\nvs\n%q", once, twice)
	}
}

func TestAddSourcesRespectsExistingSection(t *testing.T) {
	content := "Answer [1]\n\n**Sources:**\n[1] [A](https://a.example)"
	if got := AddSources(content, []Source{{URL: "https://b.example", Title: "B"}}); got != content {
		t.Errorf("existing section modified: %q", got)
	}
}

func TestAddSourcesNoSources(t *testing.T) {
	if got := AddSources("Plain answer.", nil); got != "Plain answer." {
		t.Errorf("got %q", got)
	}
}

func TestAddSourcesFallsBackToURLTitle(t *testing.T) {
	out := AddSources("Answer.", []Source{{URL: "https://a.example"}})
	if !strings.Contains(out, "[1] [https://a.example](https://a.example)") {
		t.Errorf("got %q", out)
	}
}

func TestRenumberCitations(t *testing.T) {
	content, mapping := RenumberCitations("First [3], second [7], third [3].")
	if content != "First [1], second [2], third [1]." {
		t.Errorf("got %q", content)
	}
	want := map[int]int{3: 1, 7: 2}
	if !reflect.DeepEqual(mapping, want) {
		t.Errorf("mapping = %v, want %v", mapping, want)
	}
}

func TestRenumberCitationsAlreadyDense(t *testing.T) {
	content, _ := RenumberCitations("A [1] B [2].")
	if content != "A [1] B [2]." {
		t.Errorf("got %q", content)
	}
}

func TestRenumberCitationsNoMarkers(t *testing.T) {
	content, mapping := RenumberCitations("no markers here")
	if content != "no markers here" || len(mapping) != 0 {
		t.Errorf("got %q, %v", content, mapping)
	}
}

func TestValidateCitations(t *testing.T) {
	errs := ValidateCitations("Claims [1] [2] [5].", 2)
	if len(errs) != 1 {
		t.Fatalf("got %d errors: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "[5]") {
		t.Errorf("got %q", errs[0])
	}
	if errs := ValidateCitations("Claims [1] [2].", 2); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestExtractInlineURLs(t *testing.T) {
	text := "See https://a.example/page, then https://b.example. Also https://a.example/page again."
	got := ExtractInlineURLs(text)
	want := []string{"https://a.example/page", "https://b.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCitationSummary(t *testing.T) {
	citations := []Citation{
		{Number: 1, URL: "https://www.a.example/x"},
		{Number: 2, URL: "https://b.example/y"},
	}
	got := CitationSummary(citations, 5)
	if got != "2 sources: a.example, b.example" {
		t.Errorf("got %q", got)
	}
	if CitationSummary(nil, 5) != "No sources" {
		t.Errorf("empty summary wrong")
	}
}

func TestCitationSummaryOverflow(t *testing.T) {
	citations := []Citation{
		{Number: 1, URL: "https://a.example"},
		{Number: 2, URL: "https://b.example"},
		{Number: 3, URL: "https://c.example"},
	}
	got := CitationSummary(citations, 2)
	if got != "3 sources: a.example, b.example (+1 more)" {
		t.Errorf("got %q", got)
	}
}
