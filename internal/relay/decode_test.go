package relay

import "testing"

type doc struct {
	Notes string `json:"notes"`
}

func TestDecodePlainJSON(t *testing.T) {
	var d doc
	if err := Decode(`{"notes":"hello"}`, &d); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Notes != "hello" {
		t.Errorf("got %q, want %q", d.Notes, "hello")
	}
}

func TestDecodeCodeFences(t *testing.T) {
	raw := "```json\n{\"notes\":\"fenced\"}\n```"
	var d doc
	if err := Decode(raw, &d); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Notes != "fenced" {
		t.Errorf("got %q, want %q", d.Notes, "fenced")
	}
}

func TestDecodeBareFences(t *testing.T) {
	raw := "```\n{\"notes\":\"bare\"}\n```"
	var d doc
	if err := Decode(raw, &d); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Notes != "bare" {
		t.Errorf("got %q, want %q", d.Notes, "bare")
	}
}

func TestDecodeSurroundingProse(t *testing.T) {
	raw := "Here is your JSON:\n{\"notes\":\"embedded\"}\nHope that helps!"
	var d doc
	if err := Decode(raw, &d); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Notes != "embedded" {
		t.Errorf("got %q, want %q", d.Notes, "embedded")
	}
}

func TestDecodeArrayInProse(t *testing.T) {
	raw := "Sure:\n[\"a\", \"b\"]\nDone."
	var arr []string
	if err := Decode(raw, &arr); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(arr) != 2 || arr[0] != "a" || arr[1] != "b" {
		t.Errorf("got %v, want [a b]", arr)
	}
}

func TestDecodeUnparsable(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"no json here at all",
		"{broken",
	}
	for _, raw := range cases {
		var d doc
		if err := Decode(raw, &d); err != ErrUnparsable {
			t.Errorf("Decode(%q) = %v, want ErrUnparsable", raw, err)
		}
	}
}

func TestDecodeObjectPrecedesArray(t *testing.T) {
	// When an object opens first, the object brackets win.
	raw := `{"notes":"x","tags":["a"]}`
	var d doc
	if err := Decode(raw, &d); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Notes != "x" {
		t.Errorf("got %q, want %q", d.Notes, "x")
	}
}
