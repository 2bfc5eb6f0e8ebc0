package checksum

import "testing"

func TestSumKnownValue(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestSumJSONStableForMaps(t *testing.T) {
	a, err := SumJSON(map[string]any{"b": 1, "a": []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := SumJSON(map[string]any{"a": []string{"x"}, "b": 1})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("equal maps should have equal sums")
	}

	c, _ := SumJSON(map[string]any{"a": []string{"y"}, "b": 1})
	if a == c {
		t.Error("different values should have different sums")
	}
}

func TestSumJSONUnsupported(t *testing.T) {
	if _, err := SumJSON(make(chan int)); err == nil {
		t.Error("expected error for unsupported type")
	}
}
