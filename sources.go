package scout

// ExtractSources harvests citable (url, title) pairs from a successful tool
// result. Only the three tools that surface external content contribute;
// save_note and list_notes never do.
func ExtractSources(toolName string, result map[string]any) []Source {
	var sources []Source

	switch toolName {
	case "web_search":
		for _, item := range sliceField(result, "results") {
			m, _ := item.(map[string]any)
			sources = append(sources, Source{
				URL:   stringField(m, "url"),
				Title: stringField(m, "title"),
				Tool:  "web_search",
			})
		}

	case "fetch_page":
		sources = append(sources, Source{
			URL:   stringField(result, "url"),
			Title: stringField(result, "title"),
			Tool:  "fetch_page",
		})

	case "get_note":
		note := mapField(result, "note")
		for _, url := range stringsField(note, "source_urls") {
			sources = append(sources, Source{
				URL:   url,
				Title: "From saved note",
				Tool:  "get_note",
			})
		}
	}

	return sources
}

// DedupSources drops empty URLs and duplicates, keeping first-seen order.
// The surviving index of a source is its citation number minus one.
func DedupSources(sources []Source) []Source {
	seen := make(map[string]struct{}, len(sources))
	unique := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.URL == "" {
			continue
		}
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		unique = append(unique, s)
	}
	return unique
}
