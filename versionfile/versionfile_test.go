package versionfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/depforge/depforge/version"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mydep.version")

	vf := New(version.PinnedRevision("abc123"))
	vf.Products["macOS"] = []Product{{Name: "MyLib", Hash: "deadbeef", Linking: LinkageDynamic}}

	if err := Write(path, vf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Commitish != "abc123" {
		t.Fatalf("commitish = %s, want abc123", got.Commitish)
	}
	if len(got.Products["macOS"]) != 1 || got.Products["macOS"][0].Hash != "deadbeef" {
		t.Fatalf("unexpected products: %+v", got.Products)
	}
}

func TestReadMissingFileReturnsNil(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nonexistent.version"))
	if err != nil {
		t.Fatalf("Read of missing file should not error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil VersionFile, got %+v", got)
	}
}

func TestMatchesNilOnMissing(t *testing.T) {
	if Matches(nil, "abc", []Platform{"macOS"}, t.TempDir(), "5.9", nil) {
		t.Fatal("expected no match for nil version file")
	}
}

func TestMatchesRevisionMismatch(t *testing.T) {
	vf := New("abc123")
	if Matches(vf, "different", nil, t.TempDir(), "5.9", nil) {
		t.Fatal("expected mismatch on differing commitish")
	}
}

func TestMatchesHashMismatchOnMissingBinary(t *testing.T) {
	dir := t.TempDir()
	vf := New("abc123")
	vf.Products["macOS"] = []Product{{Name: "MyLib", Hash: "deadbeef"}}
	if Matches(vf, "abc123", []Platform{"macOS"}, dir, "5.9", nil) {
		t.Fatal("expected mismatch when product binary is absent from disk")
	}
}

func TestHashProductIsStableAndHexSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	h1, err := HashProduct(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashProduct(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable across calls: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars for SHA-256, got %d (%s)", len(h1), h1)
	}
}
