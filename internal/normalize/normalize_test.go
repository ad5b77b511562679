package normalize

import "testing"

func TestTextStripsMarkup(t *testing.T) {
	got := Text("<p>Hello <b>world</b></p>")
	if got != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", got)
	}
}

func TestTextDecodesEntities(t *testing.T) {
	got := Text("Fish &amp; chips &mdash; classic")
	if got != "Fish & chips — classic" {
		t.Errorf("entities not decoded: %q", got)
	}
}

func TestTextCollapsesWhitespace(t *testing.T) {
	got := Text("a\n\n   b\t\tc")
	if got != "a b c" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestTextRemovesControlCharacters(t *testing.T) {
	got := Text("clean\x00me\x07up")
	if got != "clean me up" {
		t.Errorf("control characters survived: %q", got)
	}
}

func TestTextEmptyInput(t *testing.T) {
	if got := Text(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if got := Text("   \n "); got != "" {
		t.Errorf("expected empty output for whitespace, got %q", got)
	}
}

func TestTextMalformedMarkupDoesNotPanic(t *testing.T) {
	got := Text("<div><p>unclosed <b>tags < not a tag")
	if got == "" {
		t.Errorf("expected best-effort text from malformed markup")
	}
}

func TestTextIdempotent(t *testing.T) {
	first := Text("<article><h1>Title</h1><p>Body &quot;quoted&quot; text.</p></article>")
	second := Text(first)
	if first != second {
		t.Errorf("normalization not idempotent: %q vs %q", first, second)
	}
}
