package sanitize

import "testing"

func TestStripHTML_RemovesTagsAndDecodesEntities(t *testing.T) {
	got := StripHTML("<b>Диван</b> &amp; шкаф &lt;3")
	want := "Диван & шкаф <3"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStripHTML_ReStripsAfterEntityDecode(t *testing.T) {
	got := StripHTML("&lt;script&gt;alert(1)&lt;/script&gt;")
	if got != "alert(1)" {
		t.Fatalf("expected tags introduced by entity decoding to be stripped again, got %q", got)
	}
}

func TestText_TrimsWhitespace(t *testing.T) {
	if got := Text("  Диван, холодильник  "); got != "Диван, холодильник" {
		t.Fatalf("expected surrounding whitespace trimmed, got %q", got)
	}
}

func TestTextPtr_NilInputReturnsNil(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatalf("expected nil passthrough for a nil pointer")
	}
}
