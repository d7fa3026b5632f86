package configform

// lookup returns the value at path and whether every segment existed.
func lookup(doc Document, path []string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// set stores value at path, creating intermediate objects. A non-object
// value in the way is replaced.
func set(doc Document, path []string, value any) {
	cur := doc
	for _, seg := range path[:len(path)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// DeepCopy copies a decoded JSON value so the copy can be mutated freely.
func DeepCopy(doc Document) Document {
	if doc == nil {
		return Document{}
	}
	return deepCopy(doc).(map[string]any)
}

func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			out[i] = deepCopy(child)
		}
		return out
	}
	return v
}
