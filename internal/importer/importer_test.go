package importer

import (
	"context"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/mybbtools/devsync/internal/store"
)

func setupImporter(t *testing.T) (*Importer, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "devsync.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	quiet := log.New(io.Discard, "", 0)
	return New(db, time.Minute, quiet), db
}

func TestImportTemplate_InsertThenUpdate(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	sid, err := db.CreateTemplateSet(ctx, "Default Templates")
	if err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}

	res, err := imp.ImportTemplate(ctx, "Default Templates", "header", "<html>")
	if err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}
	if res.Action != ActionInserted {
		t.Fatalf("Action = %v, want inserted", res.Action)
	}
	if res.SID != sid {
		t.Errorf("SID = %d, want %d", res.SID, sid)
	}

	// Importing the same identity again updates in place - no duplicates.
	res, err = imp.ImportTemplate(ctx, "Default Templates", "header", "<html v2>")
	if err != nil {
		t.Fatalf("second ImportTemplate() failed: %v", err)
	}
	if res.Action != ActionUpdated {
		t.Fatalf("Action = %v, want updated", res.Action)
	}

	got, err := db.GetTemplate(ctx, "header", sid)
	if err != nil {
		t.Fatalf("GetTemplate() failed: %v", err)
	}
	if got.Template != "<html v2>" {
		t.Errorf("content = %q, want %q", got.Template, "<html v2>")
	}

	count, err := db.TemplateCount(ctx)
	if err != nil {
		t.Fatalf("TemplateCount() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("TemplateCount() = %d, want 1 (idempotent upsert)", count)
	}
}

func TestImportTemplate_BlankContentRejected(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	if _, err := db.CreateTemplateSet(ctx, "Default Templates"); err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}

	res, err := imp.ImportTemplate(ctx, "Default Templates", "header", "   \n\t ")
	if err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}
	if res.Action != ActionSkipped {
		t.Fatalf("Action = %v, want skipped", res.Action)
	}
	if res.Warning == "" {
		t.Error("blank-content skip should carry a warning")
	}

	count, err := db.TemplateCount(ctx)
	if err != nil {
		t.Fatalf("TemplateCount() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("TemplateCount() = %d, want 0 (blank content must not reach the store)", count)
	}
}

func TestImportTemplate_UnknownSetDropped(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	res, err := imp.ImportTemplate(ctx, "No Such Set", "header", "<html>")
	if err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}
	if res.Action != ActionSkipped {
		t.Fatalf("Action = %v, want skipped", res.Action)
	}
	if res.Warning == "" {
		t.Error("unresolvable set should carry a warning")
	}

	count, err := db.TemplateCount(ctx)
	if err != nil {
		t.Fatalf("TemplateCount() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("TemplateCount() = %d, want 0", count)
	}
}

func TestImportTemplate_VersionInheritedFromMaster(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	sid, err := db.CreateTemplateSet(ctx, "Custom")
	if err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}
	master := &store.Template{Title: "header", SID: store.SIDMaster, Template: "x", Version: "1822", Dateline: 1}
	if _, err := db.InsertTemplate(ctx, master); err != nil {
		t.Fatalf("InsertTemplate() failed: %v", err)
	}

	if _, err := imp.ImportTemplate(ctx, "Custom", "header", "<html>"); err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}

	got, err := db.GetTemplate(ctx, "header", sid)
	if err != nil {
		t.Fatalf("GetTemplate() failed: %v", err)
	}
	if got.Version != "1822" {
		t.Errorf("Version = %q, want inherited %q", got.Version, "1822")
	}

	// Without a master row the default version applies.
	if _, err := imp.ImportTemplate(ctx, "Custom", "footer", "<html>"); err != nil {
		t.Fatalf("ImportTemplate() failed: %v", err)
	}
	got, err = db.GetTemplate(ctx, "footer", sid)
	if err != nil {
		t.Fatalf("GetTemplate() failed: %v", err)
	}
	if got.Version != store.DefaultTemplateVersion {
		t.Errorf("Version = %q, want default %q", got.Version, store.DefaultTemplateVersion)
	}
}

func TestImportStylesheet_InsertThenUpdate(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	themeID, err := db.CreateTheme(ctx, "Default")
	if err != nil {
		t.Fatalf("CreateTheme() failed: %v", err)
	}

	res, err := imp.ImportStylesheet(ctx, "Default", "global", "body{}")
	if err != nil {
		t.Fatalf("ImportStylesheet() failed: %v", err)
	}
	if res.Action != ActionInserted {
		t.Fatalf("Action = %v, want inserted", res.Action)
	}

	res, err = imp.ImportStylesheet(ctx, "Default", "global", "body{margin:0}")
	if err != nil {
		t.Fatalf("second ImportStylesheet() failed: %v", err)
	}
	if res.Action != ActionUpdated {
		t.Fatalf("Action = %v, want updated", res.Action)
	}

	got, err := db.GetStylesheet(ctx, "global", themeID)
	if err != nil {
		t.Fatalf("GetStylesheet() failed: %v", err)
	}
	if got.Stylesheet != "body{margin:0}" {
		t.Errorf("content = %q, want %q", got.Stylesheet, "body{margin:0}")
	}
}

func TestImportStylesheet_UnknownThemeDropped(t *testing.T) {
	imp, _ := setupImporter(t)

	res, err := imp.ImportStylesheet(context.Background(), "No Theme", "global", "body{}")
	if err != nil {
		t.Fatalf("ImportStylesheet() failed: %v", err)
	}
	if res.Action != ActionSkipped || res.Warning == "" {
		t.Errorf("Result = %+v, want skipped with warning", res)
	}
}

func TestImportPluginTemplate_MasterDestination(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	res, err := imp.ImportPluginTemplate(ctx, "dice_roller", "", "main", "Roll: {$result}")
	if err != nil {
		t.Fatalf("ImportPluginTemplate() failed: %v", err)
	}
	if res.Title != "dice_roller_main" {
		t.Errorf("Title = %q, want %q", res.Title, "dice_roller_main")
	}
	if res.SID != store.SIDMaster {
		t.Errorf("SID = %d, want %d", res.SID, store.SIDMaster)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning for explicit master destination: %q", res.Warning)
	}

	got, err := db.GetTemplate(ctx, "dice_roller_main", store.SIDMaster)
	if err != nil {
		t.Fatalf("GetTemplate() failed: %v", err)
	}
	if got.Template != "Roll: {$result}" {
		t.Errorf("content = %q, want %q", got.Template, "Roll: {$result}")
	}
}

func TestImportPluginTemplate_UnknownThemeFallsBackToMaster(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	res, err := imp.ImportPluginTemplate(ctx, "dice_roller", "Mobile Templates", "main", "Roll: {$result}")
	if err != nil {
		t.Fatalf("ImportPluginTemplate() failed: %v", err)
	}
	if res.SID != store.SIDMaster {
		t.Errorf("SID = %d, want master fallback %d", res.SID, store.SIDMaster)
	}
	if res.Warning == "" {
		t.Error("fallback must surface a warning to the caller")
	}

	// The row landed somewhere recoverable under the prefixed title.
	if _, err := db.GetTemplate(ctx, "dice_roller_main", store.SIDMaster); err != nil {
		t.Errorf("GetTemplate() failed: %v", err)
	}
}

func TestImportPluginTemplate_ResolvedThemeDestination(t *testing.T) {
	imp, db := setupImporter(t)
	ctx := context.Background()

	sid, err := db.CreateTemplateSet(ctx, "Mobile Templates")
	if err != nil {
		t.Fatalf("CreateTemplateSet() failed: %v", err)
	}

	res, err := imp.ImportPluginTemplate(ctx, "dice_roller", "Mobile Templates", "main", "mobile")
	if err != nil {
		t.Fatalf("ImportPluginTemplate() failed: %v", err)
	}
	if res.SID != sid {
		t.Errorf("SID = %d, want %d", res.SID, sid)
	}
	if res.Warning != "" {
		t.Errorf("unexpected warning: %q", res.Warning)
	}
	// Title keeps the codename prefix regardless of destination.
	if res.Title != "dice_roller_main" {
		t.Errorf("Title = %q, want %q", res.Title, "dice_roller_main")
	}

	// No row leaked onto the master set.
	if _, err := db.GetTemplate(ctx, "dice_roller_main", store.SIDMaster); err != sql.ErrNoRows {
		t.Errorf("master row lookup error = %v, want sql.ErrNoRows", err)
	}
}

func TestImportPluginTemplate_WhitespaceThemeIsMaster(t *testing.T) {
	imp, _ := setupImporter(t)

	res, err := imp.ImportPluginTemplate(context.Background(), "dice_roller", "   ", "main", "x")
	if err != nil {
		t.Fatalf("ImportPluginTemplate() failed: %v", err)
	}
	if res.SID != store.SIDMaster {
		t.Errorf("SID = %d, want %d", res.SID, store.SIDMaster)
	}
	if res.Warning != "" {
		t.Errorf("whitespace theme should target master without warning, got %q", res.Warning)
	}
}
