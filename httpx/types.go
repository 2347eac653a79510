package httpx

// Header maps a field name to its values. Keys are compared exactly as
// received on the wire; no canonicalization is applied.
type Header map[string][]string

// Get returns the first value stored under key, or "".
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	if vv, ok := h[key]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// Values returns every value stored under key. The slice is not copied.
func (h Header) Values(key string) []string {
	if h == nil {
		return nil
	}
	return h[key]
}

func (h Header) Has(key string) bool {
	_, ok := h[key]
	return ok
}

func (h Header) Set(key, value string) {
	if h == nil {
		return
	}
	h[key] = []string{value}
}

func (h Header) Add(key, value string) {
	if h == nil {
		return
	}
	h[key] = append(h[key], value)
}

func (h Header) Del(key string) {
	if h == nil {
		return
	}
	delete(h, key)
}
