package storage

import (
	"context"
	"strings"
	"testing"
)

func TestMemoryStoreUpload(t *testing.T) {
	m := NewMemoryStore("https://cdn.example.com")
	url, err := m.Upload(context.Background(), "recordings/CA1/RE1.mp3", "audio/mpeg", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example.com/recordings/CA1/RE1.mp3" {
		t.Fatalf("url = %q", url)
	}
	data, ok := m.Object("recordings/CA1/RE1.mp3")
	if !ok || string(data) != "audio-bytes" {
		t.Fatalf("stored = %q ok=%v", data, ok)
	}
}

func TestS3PublicURL(t *testing.T) {
	withBase := &S3Store{bucket: "bait", region: "us-east-1", publicBaseURL: "https://cdn.example.com"}
	if got := withBase.publicURL("recordings/a.mp3"); got != "https://cdn.example.com/recordings/a.mp3" {
		t.Fatalf("got %q", got)
	}
	bare := &S3Store{bucket: "bait", region: "us-east-1"}
	if got := bare.publicURL("recordings/a.mp3"); got != "https://bait.s3.us-east-1.amazonaws.com/recordings/a.mp3" {
		t.Fatalf("got %q", got)
	}
}
