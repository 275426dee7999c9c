package reconcile

// firstIndex maps each key to the position of its first occurrence.
func firstIndex[T any, K comparable](items []T, key func(T) K) map[K]int {
	idx := make(map[K]int, len(items))
	for i, it := range items {
		k := key(it)
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// keySet returns the set of keys present in items.
func keySet[T any, K comparable](items []T, key func(T) K) map[K]struct{} {
	set := make(map[K]struct{}, len(items))
	for _, it := range items {
		set[key(it)] = struct{}{}
	}
	return set
}

// keepFirst returns copies of the first item per key, in input order.
func keepFirst[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// absent returns copies of the items whose key is not in existing.
func absent[T any, K comparable](items []T, existing map[K]struct{}, key func(T) K) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := existing[key(it)]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}
