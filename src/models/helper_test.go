package models

import (
	"bytes"
	"testing"
)

func TestNormalizeMIME(t *testing.T) {
	cases := []struct {
		name string
		file string
		mime string
		want string
	}{
		{"empty everything", "noext", "", ""},
		{"from extension", "report.md", "", "text/markdown"},
		{"alias jpeg", "photo", "image/jpg", "image/jpeg"},
		{"double prefix", "diagram.png", "image/image/png", "image/png"},
		{"invalid without slash", "clip.mp4", "video", "video/mp4"},
		{"with params", "vector.svg", "image/svg+xml; charset=utf-8", "image/svg+xml"},
		{"already clean", "data.bin", "application/octet-stream", "application/octet-stream"},
		{"suffix slash", "notes.txt", "text/plain/", "text/plain"},
		{"wav alias", "voice", "audio/x-wav", "audio/wav"},
		{"upper case", "x", "IMAGE/PNG", "image/png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeMIME(tc.file, tc.mime); got != tc.want {
				t.Fatalf("NormalizeMIME(%q, %q) = %q, want %q", tc.file, tc.mime, got, tc.want)
			}
		})
	}
}

func TestIsImage(t *testing.T) {
	cases := []struct {
		file File
		want bool
	}{
		{File{Name: "a.png", MIME: "image/png"}, true},
		{File{Name: "a.jpg"}, true},
		{File{Name: "a.pdf", MIME: "application/pdf"}, false},
		{File{Name: "clip.mp4", MIME: "video/mp4"}, false},
		{File{}, false},
	}
	for _, tc := range cases {
		if got := IsImage(tc.file); got != tc.want {
			t.Fatalf("IsImage(%+v) = %v, want %v", tc.file, got, tc.want)
		}
	}
}

func TestFileBase64RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a},
		bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 1025),
	}
	for _, in := range inputs {
		f := NewFile("blob.bin", "application/octet-stream", in)
		if f.Size != int64(len(in)) {
			t.Fatalf("Size = %d, want %d", f.Size, len(in))
		}
		out, err := f.Bytes()
		if err != nil {
			t.Fatalf("Bytes() error: %v", err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("round trip mismatch for %d bytes", len(in))
		}
	}
}

func TestFileBytesRejectsInvalidPayload(t *testing.T) {
	f := File{Name: "bad.png", Payload: "not base64!!"}
	if _, err := f.Bytes(); err == nil {
		t.Fatal("expected decode error")
	}
}
