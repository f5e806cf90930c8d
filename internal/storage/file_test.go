package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"alertd/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", "NONE"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) should return nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := st.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}

	want := []byte(`{"maxPerHour":5}`)
	if err := st.Put(ctx, "notification.settings", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := st.Get(ctx, "notification.settings")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and read back from disk.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	got, ok, err = st2.Get(ctx, "notification.settings")
	if err != nil || !ok || string(got) != string(want) {
		t.Fatalf("reopen get: %s ok=%v err=%v", got, ok, err)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if err := st.Put(ctx, "k", []byte(`"v1"`)); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(ctx, "k", []byte(`"v2"`)); err != nil {
		t.Fatal(err)
	}
	got, _, _ := st.Get(ctx, "k")
	if string(got) != `"v2"` {
		t.Fatalf("got %s, want \"v2\"", got)
	}
}

func TestFileStoreCorruptSnapshotStartsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("not json{"), 0o600); err != nil {
		t.Fatal(err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("corrupt snapshot must not fail open: %v", err)
	}
	defer st.Close()
	if _, ok, _ := st.Get(context.Background(), "anything"); ok {
		t.Fatal("corrupt snapshot should read as empty")
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error when path missing")
	}
}
