package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
)

var cliCommands = []string{
	"type", "click", "eval", "dom", "axtree",
	"agent", "find", "tabs", "health",
}

func isCLICommand(cmd string) bool {
	for _, c := range cliCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

func printHelp() {
	fmt.Println(`openclaw-cdp-bridge — drive a running browser over its debug protocol

Usage:
  openclaw-cdp-bridge <command> [flags]

Commands:
  type    -text <s> [-tab-url <s>] [-selector <s>] [-clear]   type via raw key events
  click   -x <n> -y <n> [-tab-url <s>]                        click at coordinates
  eval    -expr <s> [-tab-url <s>]                            evaluate JavaScript
  dom     [-tab-url <s>]                                      full DOM tree (shadow roots pierced)
  axtree  [-tab-url <s>] [-interactive]                       flat accessibility tree
  agent   -task <s> [-tab-url <s>]                            run an AI agent task
  find    -prompt <s> [-tab-url <s>]                          AI element finding
  tabs                                                        list browser tabs
  health                                                      check the debug endpoint
  serve   [-port <n>]                                         run the HTTP facade

Environment:
  CDP_URL, CDP_PORT    Chrome debug endpoint (default http://localhost:18800)
  BRIDGE_PORT          serve port (default 18850)
  BRIDGE_TOKEN         bearer token for the HTTP facade
  OPENAI_API_KEY       enables agent/find`)
}

// runCLI executes one subcommand against the debug endpoint and prints a
// JSON or human-readable summary. Errors propagate to a non-zero exit.
func runCLI(cfg Config, cmd string, args []string) error {
	ctx := context.Background()
	bridge := NewBridge(cfg)

	switch cmd {
	case "type":
		fs := flag.NewFlagSet("type", flag.ExitOnError)
		text := fs.String("text", "", "text to type")
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		selector := fs.String("selector", "", "CSS selector to focus first")
		clear := fs.Bool("clear", false, "clear the field before typing")
		fs.Parse(args)
		if *text == "" {
			return fmt.Errorf("type: -text is required")
		}
		res, err := bridge.Type(ctx, TypeRequest{
			Text:      strings.ReplaceAll(*text, `\n`, "\n"),
			TabFilter: *tabURL,
			Selector:  *selector,
			Clear:     *clear,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Typed %d chars into %s\n", res.Chars, res.Tab)

	case "click":
		fs := flag.NewFlagSet("click", flag.ExitOnError)
		x := fs.Float64("x", -1, "x coordinate")
		y := fs.Float64("y", -1, "y coordinate")
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		fs.Parse(args)
		if *x < 0 || *y < 0 {
			return fmt.Errorf("click: -x and -y are required")
		}
		if err := bridge.Click(ctx, *x, *y, *tabURL); err != nil {
			return err
		}
		fmt.Printf("Clicked (%.0f, %.0f)\n", *x, *y)

	case "eval":
		fs := flag.NewFlagSet("eval", flag.ExitOnError)
		expr := fs.String("expr", "", "JavaScript expression")
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		fs.Parse(args)
		if *expr == "" {
			return fmt.Errorf("eval: -expr is required")
		}
		result, err := bridge.Eval(ctx, *expr, *tabURL)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "dom":
		fs := flag.NewFlagSet("dom", flag.ExitOnError)
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		fs.Parse(args)
		result, err := bridge.DOM(ctx, *tabURL)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "axtree":
		fs := flag.NewFlagSet("axtree", flag.ExitOnError)
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		interactive := fs.Bool("interactive", false, "interactive roles only")
		fs.Parse(args)
		nodes, err := bridge.AXTree(ctx, *tabURL, *interactive)
		if err != nil {
			return err
		}
		fmt.Printf("Accessibility tree: %d nodes\n", len(nodes))
		fmt.Print(formatAXNodes(nodes, 0))

	case "agent":
		fs := flag.NewFlagSet("agent", flag.ExitOnError)
		task := fs.String("task", "", "task description")
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		fs.Parse(args)
		if *task == "" {
			return fmt.Errorf("agent: -task is required")
		}
		ai := newCapability(cfg, bridge)
		if ai == nil {
			return errAINotConfigured
		}
		result, err := ai.RunTask(ctx, *task, *tabURL)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "find":
		fs := flag.NewFlagSet("find", flag.ExitOnError)
		prompt := fs.String("prompt", "", "element description")
		tabURL := fs.String("tab-url", "", "tab URL substring filter")
		fs.Parse(args)
		if *prompt == "" {
			return fmt.Errorf("find: -prompt is required")
		}
		ai := newCapability(cfg, bridge)
		if ai == nil {
			return errAINotConfigured
		}
		result, err := ai.FindElement(ctx, *prompt, *tabURL)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "tabs":
		tabs, err := bridge.Tabs(ctx)
		if err != nil {
			return err
		}
		for _, t := range tabs {
			title := t.Title
			if len(title) > 60 {
				title = title[:60]
			}
			fmt.Printf("  %s\n    %s\n\n", title, t.URL)
		}

	case "health":
		if _, err := bridge.Tabs(ctx); err != nil {
			return fmt.Errorf("endpoint %s unreachable: %w", cfg.CDPBase, err)
		}
		fmt.Printf("ok: %s\n", cfg.CDPBase)

	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
