package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"auroraview/internal/appconfig"
	"auroraview/internal/automation/mcp"
	"auroraview/internal/ipc"
	"auroraview/internal/webviewhost"
)

func newRunCommand() *cobra.Command {
	var (
		configFile        string
		url               string
		html              string
		title             string
		width, height     int
		debug             bool
		allowNewWindow    bool
		allowFileProtocol bool
		alwaysOnTop       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch a standalone AuroraView window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" && html == "" {
				return fmt.Errorf("one of --url or --html is required")
			}

			overrides := map[string]any{
				"url": url, "html": html, "title": title,
				"width": width, "height": height, "debug": debug,
				"allow_new_window": allowNewWindow, "allow_file_protocol": allowFileProtocol,
				"always_on_top": alwaysOnTop,
			}
			cfg, err := appconfig.LoadRunConfig(configFile, overrides)
			if err != nil {
				return err
			}

			return runStandaloneWindow(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&url, "url", "", "URL to load")
	cmd.Flags().StringVar(&html, "html", "", "local HTML file to load")
	cmd.Flags().StringVar(&title, "title", "AuroraView", "window title")
	cmd.Flags().IntVar(&width, "width", 1024, "window width")
	cmd.Flags().IntVar(&height, "height", 768, "window height")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable devtools")
	cmd.Flags().BoolVar(&allowNewWindow, "allow-new-window", false, "allow window.open popups")
	cmd.Flags().BoolVar(&allowFileProtocol, "allow-file-protocol", false, "enable the file:// scheme handler")
	cmd.Flags().BoolVar(&alwaysOnTop, "always-on-top", false, "keep the window above others")

	return cmd
}

func runStandaloneWindow(ctx context.Context, cfg appconfig.RunConfig) error {
	stack, err := newRuntimeStack(cfg.Title, cfg.URL, 0)
	if err != nil {
		return err
	}
	defer stack.Close()

	engine := webviewhost.NewPlatformEngine()
	var host *webviewhost.Host
	host = webviewhost.New(engine, func(raw []byte) {
		// Page -> host messages are Plane A JSON-RPC requests; dispatch
		// through the Router and deliver the reply back over the same
		// bridge (spec §4.4).
		reply := stack.router.DispatchBytes(raw)
		host.Enqueue(webviewhost.EvalJS(ipcReplyScript(reply)))
	})
	defer host.Destroy()
	stack.events.Install(eventDispatcher{host: host})

	wvCfg := webviewhost.Config{InitialURL: cfg.URL, DevTools: cfg.Debug}
	if err := host.CreateEmbedded(ctx, webviewhost.WindowHandle(0), 0, 0, cfg.Width, cfg.Height, wvCfg); err != nil {
		return err
	}
	if cfg.HTML != "" {
		host.Enqueue(webviewhost.LoadHTML(cfg.HTML, ""))
	}

	if cfg.Debug {
		provider := newSnapshotProvider(host)
		stack.router.Register(provider.asIPCPlugin(), ipc.PluginScope{})
		automation, err := startAutomationServer(stack.bridge, mcp.NewServer(provider))
		if err != nil {
			fmt.Println(red("automation surfaces disabled: " + err.Error()))
		} else {
			defer automation.Close()
			fmt.Println(cyan("automation surfaces on http://" + automation.Addr()))
		}
	}

	fmt.Println(green(fmt.Sprintf("AuroraView running (%dx%d)", cfg.Width, cfg.Height)))

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			quit, err := host.ProcessEvents()
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}
