package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"auroraview/internal/appconfig"
	"auroraview/internal/packer"
	"auroraview/internal/telemetry"
)

func newPackCommand() *cobra.Command {
	var (
		configFile string
		outputPath string
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Build a packed AuroraView executable from a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return fmt.Errorf("--config is required")
			}

			overrides := map[string]any{}
			if outputPath != "" {
				overrides["output_path"] = outputPath
			}
			if offline {
				overrides["offline"] = true
			}

			cfg, err := appconfig.LoadPackConfig(configFile, overrides)
			if err != nil {
				return err
			}

			builder := packer.New(toPackerConfig(cfg))
			if metrics, metricsErr := telemetry.New(); metricsErr == nil {
				builder.Metrics = metrics
				defer metrics.Shutdown(cmd.Context())
			}

			start := time.Now()
			fmt.Println(cyan(fmt.Sprintf("packing %s -> %s", cfg.EntryPoint, cfg.OutputPath)))
			if err := builder.Run(cmd.Context()); err != nil {
				fmt.Println(red("pack failed: " + err.Error()))
				return err
			}
			fmt.Println(green(fmt.Sprintf("packed %s in %s", cfg.OutputPath, time.Since(start).Round(time.Millisecond))))
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "packer YAML configuration file (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "override the config file's output_path")
	cmd.Flags().BoolVar(&offline, "offline", false, "forbid web-store and interpreter downloads")

	return cmd
}

func toPackerConfig(cfg appconfig.PackConfig) packer.Config {
	extensions := make([]packer.ExtensionRef, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions = append(extensions, packer.ExtensionRef{
			StoreID:   ext.StoreID,
			LocalPath: ext.LocalPath,
		})
	}

	mode := packer.ModeFrontendOnly
	if cfg.Mode == string(packer.ModeFullStack) {
		mode = packer.ModeFullStack
	}

	return packer.Config{
		FrontendPath: cfg.FrontendPath,
		EntryPoint:   cfg.EntryPoint,
		OutputPath:   cfg.OutputPath,
		Mode:         mode,
		ScriptingBackend: packer.ScriptingBackendConfig{
			Target:       cfg.Scripting.Target,
			IncludePaths: cfg.Scripting.IncludePaths,
			ExcludeGlobs: cfg.Scripting.ExcludeGlobs,
			Packages:     cfg.Scripting.Packages,
			EntryFile:    cfg.Scripting.EntryFile,
			EntryModule:  cfg.Scripting.EntryModule,
			DownloadURL:  cfg.Scripting.DownloadURL,
		},
		Extensions: extensions,
		Windows: packer.WindowsResources{
			Enabled:        cfg.Windows.Enabled,
			IconPath:       cfg.Windows.IconPath,
			ProductVersion: cfg.Windows.ProductVersion,
			FileVersion:    cfg.Windows.FileVersion,
			Description:    cfg.Windows.Description,
			Copyright:      cfg.Windows.Copyright,
			GUISubsystem:   cfg.Windows.GUISubsystem,
		},
		OfflineMode: cfg.Offline,
	}
}
