package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qdraft/internal/encoding"
	"github.com/kobzarvs/qdraft/internal/logger"
	"github.com/kobzarvs/qdraft/internal/store"
)

const sampleDoc = `{
  "blocks": [
    {"key": "a1", "text": "Hello world", "type": "unstyled", "depth": 0,
     "inlineStyleRanges": [{"offset": 0, "length": 5, "style": "BOLD"}],
     "entityRanges": [{"offset": 6, "length": 5, "key": 0}], "data": {}},
    {"key": "b2", "text": "second", "type": "header-one", "depth": 0,
     "inlineStyleRanges": [], "entityRanges": [], "data": {}}
  ],
  "entityMap": {
    "0": {"type": "LINK", "mutability": "MUTABLE", "data": {"url": "https://example.com"}},
    "7": {"type": "MENTION", "mutability": "IMMUTABLE", "data": {}}
  }
}`

// setupEnv points config, logs and session state at a temp dir.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("QDRAFT_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("QDRAFT_LOG_FILE", "")
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Cleanup(logger.Close)
	return dir
}

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func run(a *App, args ...string) (string, error) {
	cmd := a.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConvertToYAMLFile(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")
	out := filepath.Join(dir, "doc.yaml")

	if _, err := run(New(), "convert", in, "-o", out); err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	raw, err := encoding.Unmarshal(data, encoding.FormatYAML)
	if err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
	if len(raw.Blocks) != 2 || raw.Blocks[0].Text != "Hello world" || raw.Blocks[1].Type != "header-one" {
		t.Fatalf("blocks = %+v", raw.Blocks)
	}
	if len(raw.EntityMap) != 1 || raw.EntityMap["0"].Type != "LINK" {
		t.Fatalf("unreferenced entity kept or link lost: %+v", raw.EntityMap)
	}
	if got := raw.Blocks[0].InlineStyleRanges; len(got) != 1 || got[0].Style != "BOLD" || got[0].Length != 5 {
		t.Fatalf("styles = %+v", got)
	}
}

func TestConvertStdinToStdout(t *testing.T) {
	setupEnv(t)
	a := New(WithStdin(strings.NewReader(sampleDoc)))
	out, err := run(a, "convert", "-", "--from", "json", "--to", "yaml")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(out, "text: Hello world") {
		t.Fatalf("yaml output missing block text:\n%s", out)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	dir := setupEnv(t)
	dup := `{"blocks":[{"key":"a","text":"x"},{"key":"a","text":"y"}],"entityMap":{}}`
	path := filepath.Join(dir, "dup.json")
	if err := os.WriteFile(path, []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(New(), "convert", path); !errors.Is(err, encoding.ErrDuplicateBlockKey) {
		t.Fatalf("err = %v, want duplicate key", err)
	}
	if _, err := run(New(), "convert", path, "--to", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestInspect(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")

	out, err := run(New(), "inspect", in)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, out)
	}
	for _, want := range []string{"blocks: 2", "a1", "header-one", "BOLD", "LINK", "valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	out, err = run(New(), "inspect", "--plain", in)
	if err != nil {
		t.Fatalf("inspect --plain: %v", err)
	}
	if out != "Hello world\nsecond\n" {
		t.Fatalf("plain = %q", out)
	}
}

func TestStoreCommands(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")

	if out, err := run(New(), "store", "put", "notes", in); err != nil || !strings.Contains(out, "saved notes") {
		t.Fatalf("put: %v %q", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "config", "documents", "notes.json")); err != nil {
		t.Fatalf("document not in default store dir: %v", err)
	}

	out, err := run(New(), "store", "ls")
	if err != nil || out != "notes\n" {
		t.Fatalf("ls = %q, %v", out, err)
	}

	out, err = run(New(), "store", "get", "notes", "--to", "yaml")
	if err != nil || !strings.Contains(out, "text: second") {
		t.Fatalf("get = %q, %v", out, err)
	}

	out, err = run(New(), "inspect", "store:notes")
	if err != nil || !strings.Contains(out, "blocks: 2") {
		t.Fatalf("inspect store doc = %q, %v", out, err)
	}

	if _, err := run(New(), "store", "rm", "notes"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(New(), "store", "get", "notes"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after rm: %v", err)
	}
}

func TestStoreUnknownBackend(t *testing.T) {
	dir := setupEnv(t)
	conf := filepath.Join(dir, "config")
	if err := os.MkdirAll(conf, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(conf, "config.toml"), []byte("[store]\nbackend = \"tape\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(New(), "store", "ls"); err == nil || !strings.Contains(err.Error(), "open store") {
		t.Fatalf("err = %v", err)
	}
}

// scriptedScreen feeds keys once the command has initialized it.
type scriptedScreen struct {
	tcell.SimulationScreen
	keys []tcell.Key
}

func (s *scriptedScreen) Init() error {
	if err := s.SimulationScreen.Init(); err != nil {
		return err
	}
	s.SetSize(40, 6)
	s.InjectKey(tcell.KeyRune, 'Z', tcell.ModNone)
	for _, k := range s.keys {
		s.InjectKey(k, 0, tcell.ModCtrl)
	}
	return nil
}

func TestViewEditsAndSaves(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")

	screen := &scriptedScreen{
		SimulationScreen: tcell.NewSimulationScreen("UTF-8"),
		keys:             []tcell.Key{tcell.KeyCtrlS, tcell.KeyCtrlQ},
	}
	a := New(WithScreen(func() (tcell.Screen, error) { return screen, nil }))
	if _, err := run(a, "view", in); err != nil {
		t.Fatalf("view: %v", err)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := encoding.Unmarshal(data, encoding.FormatJSON)
	if err != nil {
		t.Fatalf("saved file: %v", err)
	}
	if raw.Blocks[0].Text != "ZHello world" {
		t.Fatalf("saved text = %q", raw.Blocks[0].Text)
	}

	state, err := os.ReadFile(filepath.Join(dir, "state", "qdraft", "session.json"))
	if err != nil {
		t.Fatalf("session not saved: %v", err)
	}
	if !strings.Contains(string(state), `"a1"`) {
		t.Fatalf("session missing selection: %s", state)
	}
}

func TestViewReadOnlyKeepsFile(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")

	screen := &scriptedScreen{
		SimulationScreen: tcell.NewSimulationScreen("UTF-8"),
		keys:             []tcell.Key{tcell.KeyCtrlS, tcell.KeyCtrlQ},
	}
	a := New(WithScreen(func() (tcell.Screen, error) { return screen, nil }))
	if _, err := run(a, "view", "--read-only", in); err != nil {
		t.Fatalf("view: %v", err)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sampleDoc {
		t.Fatalf("read-only view rewrote the file")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	if err := serve(ctx, srv, func(string) {}); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestServeReportsListenError(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1"}
	if err := serve(context.Background(), srv, func(string) {}); err == nil {
		t.Fatalf("expected listen error")
	}
}

func TestViewNeedsTerminal(t *testing.T) {
	dir := setupEnv(t)
	in := writeSample(t, dir, "doc.json")
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	old := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = old }()

	if _, err := run(New(), "view", in); err == nil || !strings.Contains(err.Error(), "not a terminal") {
		t.Fatalf("err = %v", err)
	}
}
