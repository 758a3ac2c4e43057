package fileid

import (
	"errors"
	"testing"
)

func TestEncodeCanonicalForm(t *testing.T) {
	f, err := New("HelloWorld", PublicUnencrypted, "hello.txt")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"version":1,"applicationid":"HelloWorld","filetype":1,"filename":"hello.txt"}`
	if string(got) != want {
		t.Fatalf("Encode:\n got %s\nwant %s", got, want)
	}
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	f, err := New("a<b>&c", PublicUnencrypted, "x")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := f.DataKey()
	if err != nil {
		t.Fatalf("DataKey: %v", err)
	}
	want := `{"version":1,"applicationid":"a<b>&c","filetype":1,"filename":"x"}`
	if string(got) != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	f, _ := New("app", PublicUnencrypted, "file")
	first, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Encode(FileID{Version: 1, ApplicationID: "app", FileType: PublicUnencrypted, Filename: "file"})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("encoding changed: %s vs %s", again, first)
		}
	}
}

func TestEncodeInjective(t *testing.T) {
	ids := []FileID{
		{1, "app", PublicUnencrypted, "file"},
		{2, "app", PublicUnencrypted, "file"},
		{1, "app2", PublicUnencrypted, "file"},
		{1, "app", PublicUnencrypted, "file2"},
		{1, "ap", PublicUnencrypted, "pfile"},
		{1, `app","filename":"x`, PublicUnencrypted, "file"},
		{1, "app", PublicUnencrypted, `file"`},
		{1, "appé", PublicUnencrypted, "file"},
		{1, "app\\", PublicUnencrypted, "file"},
		{10, "app", PublicUnencrypted, "file"},
	}
	seen := map[string]FileID{}
	for _, f := range ids {
		b, err := Encode(f)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", f, err)
		}
		if prev, ok := seen[string(b)]; ok {
			t.Fatalf("collision between %+v and %+v: %s", prev, f, b)
		}
		seen[string(b)] = f
	}
}

func TestValidate(t *testing.T) {
	bad := []FileID{
		{0, "app", PublicUnencrypted, "f"},
		{1, "", PublicUnencrypted, "f"},
		{1, "app", FileType(0), "f"},
		{1, "app", FileType(7), "f"},
		{1, "app", PublicUnencrypted, ""},
		{1, "app\xff", PublicUnencrypted, "f"},
		{1, "app", PublicUnencrypted, "f\xfe"},
	}
	for _, f := range bad {
		if _, err := Encode(f); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Encode(%+v): got %v want ErrInvalid", f, err)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	f, _ := NewWithVersion(3, "app", PublicUnencrypted, "dir/file.json")
	b, err := Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != f {
		t.Fatalf("Decode: got %+v want %+v", got, f)
	}
}

func TestDecodeRejectsNonCanonical(t *testing.T) {
	inputs := []string{
		`{"applicationid":"app","version":1,"filetype":1,"filename":"f"}`,
		`{"version":1, "applicationid":"app","filetype":1,"filename":"f"}`,
		`{"version":1,"applicationid":"app","filetype":1,"filename":"f"}` + "\n",
		`{"version":1,"applicationid":"app","filetype":1,"filename":"f","extra":1}`,
		`{"version":1,"applicationid":"app","filetype":2,"filename":"f"}`,
		`not json`,
	}
	for _, in := range inputs {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Decode(%s): got %v want ErrInvalid", in, err)
		}
	}
}

func TestFileTypeString(t *testing.T) {
	if PublicUnencrypted.String() != "PublicUnencrypted" {
		t.Fatalf("unexpected %s", PublicUnencrypted)
	}
	if FileType(9).String() != "FileType(9)" {
		t.Fatalf("unexpected %s", FileType(9))
	}
}
