package codes

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantInt bool
		want    string
	}{
		{"8080", true, "8080"},
		{"N/A", false, "N/A"},
		{"", false, ""},
		{"E1234", false, "E1234"},
		{"12.5", false, "12.5"},
		{"-12", false, "-12"},
		{"99999999999999999999999", false, "99999999999999999999999"},
	}
	for _, tt := range tests {
		v := ParseValue(tt.in)
		if v.IsInt() != tt.wantInt {
			t.Errorf("ParseValue(%q).IsInt()=%v want %v", tt.in, v.IsInt(), tt.wantInt)
		}
		if v.String() != tt.want {
			t.Errorf("ParseValue(%q).String()=%q want %q", tt.in, v.String(), tt.want)
		}
	}

	n, ok := ParseValue("8080").Int()
	if !ok || n != 8080 {
		t.Fatalf("Int()=%d,%v", n, ok)
	}
}

func sample() Codes {
	c, _ := FromFields([]string{"94.66.1.2", "48012", "38012", "E5432", "M8120", "A0456"})
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFile)
	want := sample()
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Saving again overwrites rather than appends.
	if err := Save(path, got); err != nil {
		t.Fatalf("second save: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if diff := cmp.Diff(want, again); diff != "" {
		t.Fatalf("overwrite mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeOrderAndKinds(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Encode(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	out := strings.TrimSpace(buf.String())
	want := `{"clientPublicAddress":"94.66.1.2","clientListeningPort":48012,"serverListeningPort":38012,` +
		`"echoRequestCode":"E5432","imageRequestCode":"M8120","soundRequestCode":"A0456"}`
	if out != want {
		t.Fatalf("encoded:\n%s\nwant:\n%s", out, want)
	}
	prev := -1
	for _, k := range Keys {
		idx := strings.Index(out, `"`+k+`"`)
		if idx <= prev {
			t.Fatalf("key %s out of order", k)
		}
		prev = idx
	}
}

func TestDecodeKeepsStrings(t *testing.T) {
	t.Parallel()

	c, err := Decode(strings.NewReader(`{"clientListeningPort":"48012","echoRequestCode":"E0001"}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.ClientListeningPort.IsInt() {
		t.Fatalf("quoted number must stay a string")
	}
	p, err := c.ClientPort()
	if err != nil || p != 48012 {
		t.Fatalf("ClientPort()=%d,%v", p, err)
	}
	if _, err := c.ServerPort(); err == nil {
		t.Fatalf("expected error for missing server port")
	}
}

func TestDecodeRejectsFloats(t *testing.T) {
	t.Parallel()

	if _, err := Decode(strings.NewReader(`{"clientListeningPort":12.5}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestFromFieldsCount(t *testing.T) {
	t.Parallel()

	if _, err := FromFields([]string{"a", "b"}); err == nil {
		t.Fatal("expected error for short field list")
	}
	m := sample().Map()
	if len(m) != len(Keys) {
		t.Fatalf("map has %d keys", len(m))
	}
	for _, k := range Keys {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %s", k)
		}
	}
}
