package exporter

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mybbtools/devsync/internal/store"
)

// recordingPauser tracks pause/resume call ordering.
type recordingPauser struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPauser) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "pause")
}

func (p *recordingPauser) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "resume")
}

func (p *recordingPauser) sequence() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func setupStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "devsync.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "header.html")

	if err := WriteFileAtomic(path, []byte("<html>")); err != nil {
		t.Fatalf("WriteFileAtomic() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "<html>" {
		t.Errorf("content = %q, want %q", data, "<html>")
	}

	// No temp artifact survives a successful write.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file still present after successful write")
	}
}

func TestWriteFileAtomic_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "header.html")

	if err := WriteFileAtomic(path, []byte("v1")); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("v2")); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content = %q, want %q", data, "v2")
	}
}

func TestWriteFileAtomic_FailureCleansUpTemp(t *testing.T) {
	dir := t.TempDir()
	// Rename onto a directory fails on every platform.
	target := filepath.Join(dir, "blocked")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("Mkdir() failed: %v", err)
	}

	if err := WriteFileAtomic(target, []byte("data")); err == nil {
		t.Fatal("WriteFileAtomic() onto a directory should fail")
	}

	// The temp file was removed, never left as a truncated artifact.
	if _, err := os.Stat(target + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after failure")
	}
}

func TestWriteFileAtomic_StaleTempReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "header.html")

	// A crash left a stale temp file from an earlier attempt.
	if err := os.WriteFile(path+".tmp", []byte("stale partial"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	if err := WriteFileAtomic(path, []byte("fresh")); err != nil {
		t.Fatalf("WriteFileAtomic() failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "fresh" {
		t.Errorf("content = %q, want %q", data, "fresh")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("stale temp file not consumed")
	}
}

func TestExportTemplateSet(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	sid, err := db.CreateTemplateSet(ctx, "Default Templates")
	if err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}
	for title, content := range map[string]string{
		"header_welcomeblock": "<welcome>",
		"header_menu":         "<menu>",
		"index":               "<index>",
	} {
		tpl := &store.Template{Title: title, SID: sid, Template: content, Version: "1", Dateline: 1}
		if _, err := db.InsertTemplate(ctx, tpl); err != nil {
			t.Fatalf("InsertTemplate(%q) failed: %v", title, err)
		}
	}

	syncRoot := t.TempDir()
	pauser := &recordingPauser{}
	exp := New(db, syncRoot, pauser, quietLogger())

	report, err := exp.ExportTemplateSet(ctx, "Default Templates")
	if err != nil {
		t.Fatalf("ExportTemplateSet() failed: %v", err)
	}
	if report.Written != 3 || report.Failed != 0 {
		t.Errorf("report = %+v, want 3 written, 0 failed", report)
	}

	// Grouped layout: prefix before the first underscore, else ungrouped.
	checks := map[string]string{
		filepath.Join(syncRoot, "template_sets", "Default Templates", "header", "header_welcomeblock.html"): "<welcome>",
		filepath.Join(syncRoot, "template_sets", "Default Templates", "header", "header_menu.html"):         "<menu>",
		filepath.Join(syncRoot, "template_sets", "Default Templates", "ungrouped", "index.html"):            "<index>",
	}
	for path, want := range checks {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("ReadFile(%s) failed: %v", path, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s content = %q, want %q", path, data, want)
		}
	}

	seq := pauser.sequence()
	if len(seq) != 2 || seq[0] != "pause" || seq[1] != "resume" {
		t.Errorf("pauser sequence = %v, want [pause resume]", seq)
	}

	// No temp files anywhere under the export root.
	_ = filepath.Walk(syncRoot, func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.HasSuffix(path, ".tmp") {
			t.Errorf("leftover temp file: %s", path)
		}
		return nil
	})
}

func TestExportTemplateSet_UnknownSet(t *testing.T) {
	db := setupStore(t)
	exp := New(db, t.TempDir(), nil, quietLogger())

	if _, err := exp.ExportTemplateSet(context.Background(), "Missing"); err == nil {
		t.Error("ExportTemplateSet() of unknown set should fail")
	}
}

func TestExportTemplateSet_ResumesAfterWriteFailures(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	sid, err := db.CreateTemplateSet(ctx, "Default Templates")
	if err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}
	tpl := &store.Template{Title: "header", SID: sid, Template: "<html>", Version: "1", Dateline: 1}
	if _, err := db.InsertTemplate(ctx, tpl); err != nil {
		t.Fatalf("InsertTemplate() failed: %v", err)
	}

	// syncRoot is a regular file: every MkdirAll under it fails.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	pauser := &recordingPauser{}
	exp := New(db, blocked, pauser, quietLogger())

	report, err := exp.ExportTemplateSet(ctx, "Default Templates")
	if err != nil {
		t.Fatalf("ExportTemplateSet() failed: %v", err)
	}
	if report.Failed != 1 || report.Written != 0 {
		t.Errorf("report = %+v, want 0 written, 1 failed", report)
	}

	// Resume still happened despite the failures.
	seq := pauser.sequence()
	if len(seq) != 2 || seq[1] != "resume" {
		t.Errorf("pauser sequence = %v, want resume after failures", seq)
	}
}

func TestExportTheme(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	tid, err := db.CreateTheme(ctx, "Dark Mode")
	if err != nil {
		t.Fatalf("CreateTheme() failed: %v", err)
	}
	sheet := &store.Stylesheet{Name: "global", ThemeID: tid, Stylesheet: "body{}", LastModified: 1}
	if _, err := db.InsertStylesheet(ctx, sheet); err != nil {
		t.Fatalf("InsertStylesheet() failed: %v", err)
	}

	syncRoot := t.TempDir()
	exp := New(db, syncRoot, nil, quietLogger())

	report, err := exp.ExportTheme(ctx, "Dark Mode")
	if err != nil {
		t.Fatalf("ExportTheme() failed: %v", err)
	}
	if report.Written != 1 {
		t.Errorf("report = %+v, want 1 written", report)
	}

	data, err := os.ReadFile(filepath.Join(syncRoot, "styles", "Dark Mode", "global.css"))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if string(data) != "body{}" {
		t.Errorf("content = %q, want %q", data, "body{}")
	}
}

func TestExportAll(t *testing.T) {
	db := setupStore(t)
	ctx := context.Background()

	sid, _ := db.CreateTemplateSet(ctx, "Default Templates")
	tid, _ := db.CreateTheme(ctx, "Default")
	if _, err := db.InsertTemplate(ctx, &store.Template{Title: "header", SID: sid, Template: "a", Version: "1", Dateline: 1}); err != nil {
		t.Fatalf("InsertTemplate() failed: %v", err)
	}
	if _, err := db.InsertStylesheet(ctx, &store.Stylesheet{Name: "global", ThemeID: tid, Stylesheet: "b", LastModified: 1}); err != nil {
		t.Fatalf("InsertStylesheet() failed: %v", err)
	}

	exp := New(db, t.TempDir(), nil, quietLogger())
	report, err := exp.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll() failed: %v", err)
	}
	if report.Written != 2 {
		t.Errorf("report = %+v, want 2 written", report)
	}
}

func TestGroupFor(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"header_welcomeblock", "header"},
		{"index", "ungrouped"},
		{"_leading", "ungrouped"},
		{"calendar_mini_day", "calendar"},
	}
	for _, tt := range tests {
		if got := groupFor(tt.title); got != tt.want {
			t.Errorf("groupFor(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
