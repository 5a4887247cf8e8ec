package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bookwise/bookwise/internal/storage"
)

type fakeClient struct {
	objects map[string][]byte
	puts    []string
	bucket  string
	exists  bool
	created bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}}
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, size int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.bucket = bucket
	f.objects[key] = data
	f.puts = append(f.puts, key)
	return storage.ObjectInfo{Key: key, Size: size}, nil
}

func (f *fakeClient) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeClient) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeClient) CreateBucket(context.Context, string, string) error {
	f.created = true
	return nil
}

func TestStorePrefixesKeys(t *testing.T) {
	fake := newFakeClient()
	store, err := NewWithClient("bookwise-media", "voice", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	info, err := store.Put(context.Background(), "abc/image.png", strings.NewReader("png"), 3, storage.PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if info.Key != "voice/abc/image.png" {
		t.Fatalf("Key = %q", info.Key)
	}
	if fake.bucket != "bookwise-media" {
		t.Fatalf("bucket = %q", fake.bucket)
	}

	reader, err := store.Get(context.Background(), "abc/image.png")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	data, _ := io.ReadAll(reader)
	if string(data) != "png" {
		t.Fatalf("data = %q", data)
	}
}

func TestStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewWithClient("bookwise-media", "voice", newFakeClient())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	for _, key := range []string{"", "  ", "../secrets", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader(""), 0, storage.PutOptions{}); err == nil {
			t.Fatalf("Put(%q) accepted, want error", key)
		}
	}
}

func TestStoreGetMissingObject(t *testing.T) {
	store, err := NewWithClient("bookwise-media", "", newFakeClient())
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "missing.png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://minio.internal:9000", false, "minio.internal:9000", true},
		{"http://localhost:9000", true, "localhost:9000", true},
		{"localhost:9000", false, "localhost:9000", false},
	}
	for _, tc := range cases {
		host, secure, err := parseEndpoint(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("parseEndpoint(%q) = %q/%v", tc.raw, host, secure)
		}
	}
	if _, _, err := parseEndpoint("https://", false); err == nil {
		t.Fatal("expected error for empty host")
	}
}
