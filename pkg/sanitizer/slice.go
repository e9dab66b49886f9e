package sanitizer

// NormalizeStringSlice applies normalizer to every item and drops empty values
// and duplicates. Two items are duplicates when key returns the same value for
// them; the first spelling wins.
func NormalizeStringSlice(items []string, normalizer Strategy, key Strategy) []string {
	if len(items) == 0 {
		return []string{}
	}
	if key == nil {
		key = func(s string) string { return s }
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		k := key(normalized)
		if seen[k] {
			continue
		}

		seen[k] = true
		result = append(result, normalized)
	}

	return result
}

func NormalizeFeatures(features []string) []string {
	return NormalizeStringSlice(features, NormalizeFeature, NormalizeNameForComparison)
}
