package portfolio

import (
	"sort"
	"strings"
)

// CuratedTags is the static vocabulary offered before any project exists.
var CuratedTags = []string{
	"React", "TypeScript", "JavaScript", "Go", "Node.js", "Next.js", "Tailwind CSS",
	"HTMX", "Firebase", "PostgreSQL", "SQLite", "Redis", "Docker", "AI", "Gemini",
	"PWA", "REST API", "GraphQL", "Python", "Kubernetes",
}

// ParseTags splits a comma separated tag field.
func ParseTags(raw string) []string {
	return dedupeTags(strings.Split(raw, ","))
}

// dedupeTags trims tags, drops empty ones and removes case-insensitive
// duplicates keeping the first spelling.
func dedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// MergeTags unions tag sets case-insensitively, first-seen casing wins, and
// sorts the result for stable display.
func MergeTags(sets ...[]string) []string {
	var all []string
	for _, set := range sets {
		all = append(all, set...)
	}
	merged := dedupeTags(all)
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := strings.ToLower(merged[i]), strings.ToLower(merged[j])
		if a == b {
			return merged[i] < merged[j]
		}
		return a < b
	})
	return merged
}

// CompleteTags suggests completions for the last, partially typed entry of a
// comma separated tag field. Tags already entered are not offered again.
func CompleteTags(all []string, input string, limit int) []string {
	parts := strings.Split(input, ",")
	current := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if current == "" {
		return nil
	}
	entered := make(map[string]struct{}, len(parts)-1)
	for _, p := range parts[:len(parts)-1] {
		entered[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}

	var out []string
	for _, tag := range all {
		lower := strings.ToLower(tag)
		if !strings.HasPrefix(lower, current) {
			continue
		}
		if _, ok := entered[lower]; ok {
			continue
		}
		out = append(out, tag)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ApplyCompletion replaces the partially typed entry of input with tag and
// leaves the field ready for the next one.
func ApplyCompletion(input, tag string) string {
	parts := strings.Split(input, ",")
	kept := make([]string, 0, len(parts))
	for _, p := range parts[:len(parts)-1] {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	kept = append(kept, tag)
	return strings.Join(kept, ", ") + ", "
}
