package sanitizer

import "slices"

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// NormalizeExceptions trims, deduplicates and sorts ISO dates.
func NormalizeExceptions(exceptions []string) []string {
	out := NormalizeStringSlice(exceptions, NormalizeDate)
	slices.Sort(out)
	return out
}

// NormalizeWeekdays deduplicates and sorts weekday indices.
func NormalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
