package util

import "testing"

func TestHashParamsStable(t *testing.T) {
	a := HashParams(map[string]string{"sort": "created_at", "page": "1", "search": ""})
	b := HashParams(map[string]string{"page": "1", "sort": "created_at"})
	if a != b {
		t.Fatalf("empty values must not affect the hash: %s vs %s", a, b)
	}
	if HashParams(map[string]string{"page": "1"}) == HashParams(map[string]string{"page": "2"}) {
		t.Fatal("different params must hash differently")
	}
	// key/value boundary must not be ambiguous
	if HashParams(map[string]string{"a": "b=c"}) == HashParams(map[string]string{"a=b": "c"}) {
		t.Fatal("ambiguous encoding")
	}
}
