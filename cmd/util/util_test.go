package util

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/kvmodel/lib/model"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line longer than %d characters: %q", Wrap, line)
		}
	}
	if WrapString("short text") != "short text" {
		t.Error("Expected short text to stay on one line")
	}
}

func TestStorageLifecycle(t *testing.T) {
	dir := t.TempDir()
	conf := &StoreConfig{
		DBPath:            filepath.Join(dir, "durable.db"),
		BusyTimeoutMillis: 1000,
		Synchronous:       "NORMAL",
		SessionFile:       filepath.Join(dir, "session.snap"),
		Shards:            2,
	}

	reg := model.NewRegistry()
	typ := reg.Define("settings")
	theme := model.Declare(typ, "theme", model.WithDefault("light"))
	draft := model.Declare(typ, "draft", model.WithScope[string](model.Session))

	// first run: the session file does not exist yet
	storage, err := OpenStorage(conf)
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	m := model.New(typ, storage, "app")
	if err := theme.In(m).Set("dark"); err != nil {
		t.Fatal(err)
	}
	if err := draft.In(m).Set("hello"); err != nil {
		t.Fatal(err)
	}
	if err := CloseStorage(storage, conf); err != nil {
		t.Fatalf("CloseStorage failed: %v", err)
	}

	// second run: both values are back
	storage, err = OpenStorage(conf)
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	m = model.New(typ, storage, "app")
	if got, err := theme.In(m).Get(); err != nil || got != "dark" {
		t.Errorf("Expected durable value dark, got %q err=%v", got, err)
	}
	if got, err := draft.In(m).Get(); err != nil || got != "hello" {
		t.Errorf("Expected session value hello, got %q err=%v", got, err)
	}

	// without a session file the session store starts empty
	noSession := *conf
	noSession.SessionFile = ""
	if err := CloseStorage(storage, conf); err != nil {
		t.Fatalf("CloseStorage failed: %v", err)
	}
	storage, err = OpenStorage(&noSession)
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	defer CloseStorage(storage, &noSession)
	m = model.New(typ, storage, "app")
	if got, _ := draft.In(m).Lookup(); got.Present {
		t.Errorf("Expected an empty session store, got %v", got)
	}
	if got, _ := theme.In(m).Get(); got != "dark" {
		t.Errorf("Expected durable value dark, got %q", got)
	}
}

func TestOpenStorageRejectsCorruptSessionFile(t *testing.T) {
	dir := t.TempDir()

	storage, err := OpenStorage(&StoreConfig{DBPath: filepath.Join(dir, "a.db"), Synchronous: "NORMAL"})
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.Durable().Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	// a sqlite file is not a snapshot
	if err := storage.Close(); err != nil {
		t.Fatal(err)
	}

	conf := &StoreConfig{
		DBPath:      filepath.Join(dir, "b.db"),
		Synchronous: "NORMAL",
		SessionFile: filepath.Join(dir, "a.db"),
	}
	if _, err := OpenStorage(conf); err == nil {
		t.Error("Expected OpenStorage to fail for a corrupt session file")
	}
}
