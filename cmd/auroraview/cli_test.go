package main

import (
	"context"
	"testing"

	"auroraview/internal/appconfig"
	"auroraview/internal/packer"
)

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "pack", "self-update"} {
		if !names[want] {
			t.Fatalf("expected %q subcommand registered, got %v", want, names)
		}
	}
}

func TestRunCommandRequiresURLOrHTML(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetArgs([]string{})
	if err := cmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected an error when neither --url nor --html is set")
	}
}

func TestToPackerConfigMapsAllFields(t *testing.T) {
	cfg := appconfig.PackConfig{
		FrontendPath: "./dist",
		EntryPoint:   "index.html",
		OutputPath:   "./out/app",
		Mode:         string(packer.ModeFullStack),
		Offline:      true,
		Scripting: appconfig.ScriptingConfig{
			Target:       "cpython-3.11-x86_64-linux",
			IncludePaths: []string{"backend"},
			Packages:     []string{"requests"},
			EntryModule:  "app.server:main",
		},
		Extensions: []appconfig.ExtensionConfig{
			{StoreID: "abc123"},
			{LocalPath: "/ext/local"},
		},
		Windows: appconfig.WindowsConfig{
			Enabled:  true,
			IconPath: "app.ico",
		},
	}

	out := toPackerConfig(cfg)

	if out.Mode != packer.ModeFullStack {
		t.Fatalf("expected full-stack mode, got %v", out.Mode)
	}
	if !out.OfflineMode {
		t.Fatal("expected offline mode to carry through")
	}
	if out.ScriptingBackend.EntryModule != "app.server:main" {
		t.Fatalf("scripting backend config did not map, got %+v", out.ScriptingBackend)
	}
	if len(out.Extensions) != 2 || out.Extensions[0].StoreID != "abc123" || out.Extensions[1].LocalPath != "/ext/local" {
		t.Fatalf("extensions did not map, got %+v", out.Extensions)
	}
	if !out.Windows.Enabled || out.Windows.IconPath != "app.ico" {
		t.Fatalf("windows resources did not map, got %+v", out.Windows)
	}
}

func TestToPackerConfigDefaultsToFrontendOnly(t *testing.T) {
	out := toPackerConfig(appconfig.PackConfig{Mode: "bogus"})
	if out.Mode != packer.ModeFrontendOnly {
		t.Fatalf("expected unrecognized mode to fall back to frontend-only, got %v", out.Mode)
	}
}

func TestResolveReleaseRejectsMissingToken(t *testing.T) {
	_, err := resolveRelease(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected missing-token error")
	}
}
