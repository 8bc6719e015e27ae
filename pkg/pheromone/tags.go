package pheromone

// MatchTags reports whether tags satisfy filter. A nil filter imposes no
// constraint. Every specified predicate (any/all/none) must hold.
func MatchTags(tags []string, filter *TagFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Any) > 0 && !containsAny(tags, filter.Any) {
		return false
	}
	if len(filter.All) > 0 && !containsAll(tags, filter.All) {
		return false
	}
	if len(filter.None) > 0 && containsAny(tags, filter.None) {
		return false
	}
	return true
}

func containsAny(haystack, needles []string) bool {
	for _, n := range needles {
		for _, h := range haystack {
			if h == n {
				return true
			}
		}
	}
	return false
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStr(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
