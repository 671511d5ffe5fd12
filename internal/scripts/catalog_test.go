package scripts

import "testing"

func TestCatalogContainsEveryCommand(t *testing.T) {
	want := map[string]int{
		"addJob":        10,
		"moveToActive":  10,
		"moveToFinished": 11,
		"retryJob":      9,
		"getCounts":     -1,
	}

	for name, numKeys := range want {
		cmd, ok := Catalog[name]
		if !ok {
			t.Fatalf("catalog missing command %q", name)
		}
		if cmd.NumKeys != numKeys {
			t.Errorf("%s.NumKeys = %d, want %d", name, cmd.NumKeys, numKeys)
		}
		if cmd.SHA == "" {
			t.Errorf("%s.SHA is empty", name)
		}
		if cmd.Body == "" {
			t.Errorf("%s.Body is empty", name)
		}
	}
}

func TestCatalogFragmentsAreFullyExpanded(t *testing.T) {
	for name, cmd := range Catalog {
		for i := 0; i < len(cmd.Body)-len("@include"); i++ {
			if cmd.Body[i:i+len("@include")] == "@include" {
				t.Errorf("%s: unexpanded @include directive remains in body", name)
				break
			}
		}
	}
}
