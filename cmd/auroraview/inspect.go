package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"auroraview/internal/apppaths"
	"auroraview/internal/automation/cdp"
	"auroraview/internal/registry"
)

// newInspectCommand builds a thin CDP consumer CLI over the Instance
// Registry: list live windows, or evaluate a JS expression in one of
// them by dialing its devtools websocket directly (spec §1 "expose
// automation surfaces (CDP...)", a client-side consumer per the
// package's own non-goal boundary).
func newInspectCommand() *cobra.Command {
	var (
		windowID string
		evalExpr string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List live AuroraView instances, or evaluate JS in one over CDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			instancesDir, err := apppaths.InstancesDir()
			if err != nil {
				return err
			}
			reg, err := registry.New(instancesDir)
			if err != nil {
				return err
			}

			if windowID == "" {
				return listInstances(reg)
			}
			inst, err := reg.Get(windowID)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			return inspectInstance(cmd.Context(), inst, evalExpr)
		},
	}

	cmd.Flags().StringVar(&windowID, "window", "", "window id to inspect (see `inspect` with no flags for the live list)")
	cmd.Flags().StringVar(&evalExpr, "eval", "", "JS expression to evaluate via Runtime.evaluate")

	return cmd
}

func listInstances(reg *registry.Registry) error {
	all, err := reg.GetAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println(yellow("no live AuroraView instances"))
		return nil
	}
	for _, inst := range all {
		fmt.Printf("%s  %-30s pid=%d cdp=%d  %s\n", inst.WindowID, inst.Title, inst.PID, inst.CDPPort, inst.URL)
	}
	return nil
}

func inspectInstance(ctx context.Context, inst registry.Instance, evalExpr string) error {
	if inst.CDPPort == 0 {
		return fmt.Errorf("inspect: instance %s has no CDP debug port", inst.WindowID)
	}

	discovery := cdp.NewDiscovery(fmt.Sprintf("127.0.0.1:%d", inst.CDPPort))
	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	targets, err := discovery.Targets(dctx, "page")
	if err != nil {
		return fmt.Errorf("inspect: discover targets: %w", err)
	}
	if len(targets) == 0 {
		return fmt.Errorf("inspect: no page targets on cdp port %d", inst.CDPPort)
	}

	client, err := cdp.Dial(ctx, targets[0].WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("inspect: dial devtools websocket: %w", err)
	}
	defer client.Close()

	if evalExpr == "" {
		fmt.Println(green(fmt.Sprintf("connected to %s (%s)", targets[0].Title, targets[0].URL)))
		return nil
	}

	cctx, cancel2 := context.WithTimeout(ctx, 5*time.Second)
	defer cancel2()
	result, err := client.Call(cctx, "Runtime.evaluate", map[string]any{"expression": evalExpr, "returnByValue": true})
	if err != nil {
		return fmt.Errorf("inspect: Runtime.evaluate: %w", err)
	}
	fmt.Println(string(result))
	return nil
}
