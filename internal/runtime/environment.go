package runtime

import (
	"os"
	"path/filepath"
	"strings"
)

// IsolationConfig drives Environment's PATH/module-search construction
// (spec §4.2 step 5).
type IsolationConfig struct {
	Isolate        bool
	ExtractDir     string
	ResourcesDir   string
	SitePackages   string
	InterpreterHome string
	ExtraModulePaths []string
	AllowList      []string // system-essential PATH entries permitted through when isolated
	InheritEnv     []string // host env vars passed through regardless of isolation
	DenyList       []string // explicitly unset even if present in the host env
}

// Environment is the constructed PATH/module-search/env var set handed
// to the spawned scripting backend.
type Environment struct {
	Path        string
	ModuleSearch string
	Env         map[string]string
}

const pathListSep = string(os.PathListSeparator)

// Build constructs the isolated (or inherited) environment per spec
// §4.2 step 5.
func Build(cfg IsolationConfig) Environment {
	env := Environment{Env: map[string]string{}}

	if cfg.Isolate {
		scripts := filepath.Join(cfg.InterpreterHome, "Scripts")
		entries := []string{cfg.InterpreterHome, scripts}
		entries = append(entries, cfg.AllowList...)
		env.Path = strings.Join(entries, pathListSep)
	} else {
		entries := []string{cfg.InterpreterHome, filepath.Join(cfg.InterpreterHome, "Scripts")}
		env.Path = strings.Join(entries, pathListSep) + pathListSep + os.Getenv("PATH")
	}

	roots := expandModuleRoots(cfg)
	if cfg.Isolate {
		env.ModuleSearch = strings.Join(roots, pathListSep)
	} else {
		parts := roots
		if host := os.Getenv("PYTHONPATH"); host != "" {
			parts = append(parts, host)
		}
		env.ModuleSearch = strings.Join(parts, pathListSep)
	}

	for _, name := range cfg.InheritEnv {
		if v, ok := os.LookupEnv(name); ok {
			env.Env[name] = v
		}
	}
	for _, name := range cfg.DenyList {
		delete(env.Env, name)
	}

	return env
}

// expandModuleRoots expands $EXTRACT_DIR/$RESOURCES_DIR/$SITE_PACKAGES
// placeholders, drops non-existent directories, and appends extras
// (spec §4.2 step 5).
func expandModuleRoots(cfg IsolationConfig) []string {
	replacer := strings.NewReplacer(
		"$EXTRACT_DIR", cfg.ExtractDir,
		"$RESOURCES_DIR", cfg.ResourcesDir,
		"$SITE_PACKAGES", cfg.SitePackages,
	)

	candidates := []string{"$EXTRACT_DIR", "$RESOURCES_DIR", "$SITE_PACKAGES"}
	candidates = append(candidates, cfg.ExtraModulePaths...)

	var roots []string
	for _, c := range candidates {
		expanded := replacer.Replace(c)
		if expanded == "" {
			continue
		}
		if info, err := os.Stat(expanded); err == nil && info.IsDir() {
			roots = append(roots, expanded)
		}
	}
	return roots
}
