// lanshare is the command line client for a lanshared daemon. It keeps a
// local view of the shared items through the sync engine, so listings after
// a mutation reflect what the server confirmed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/hazyhaar/lanshare/config"
	"github.com/hazyhaar/lanshare/gateway"
	"github.com/hazyhaar/lanshare/itemsync"
)

const usage = `usage: lanshare <command> [args]

commands:
  list             list shared items, newest first
  text <content>   share a text snippet
  file <path>      share a file
  rm <id>          delete an item
  url <id>         print the download URL for a file item

environment:
  LANSHARE_BASE_URL  server address (default http://localhost:9848)
  LANSHARE_CONFIG    path to YAML config
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("LANSHARE_CONFIG"))
	if err != nil {
		fail("config: %v", err)
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gw := gateway.New(cfg.Client.BaseURL)
	eng := itemsync.New(gw, itemsync.WithLogger(logger))
	defer eng.Close()

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(ctx, eng, gw, cmd, args); err != nil {
		fail("%s: %s", cmd, gateway.Reason(err))
	}
}

func run(ctx context.Context, eng *itemsync.Engine, gw *gateway.HTTP, cmd string, args []string) error {
	switch cmd {
	case "list":
		if err := eng.Initialize(ctx); err != nil {
			return err
		}
		printItems(eng)
		return nil

	case "text":
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one argument: the snippet content")
		}
		it, err := eng.CreateText(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("shared %s  %s\n", it.ID, it.Name)
		return nil

	case "file":
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one argument: the file path")
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		name := filepath.Base(args[0])
		contentType := mime.TypeByExtension(filepath.Ext(name))
		it, err := eng.CreateFile(ctx, name, contentType, f)
		if err != nil {
			return err
		}
		fmt.Printf("shared %s  %s (%s)\n", it.ID, it.Name, it.HumanSize())
		return nil

	case "rm":
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one argument: the item id")
		}
		if err := eng.Initialize(ctx); err != nil {
			return err
		}
		if err := eng.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil

	case "url":
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one argument: the item id")
		}
		fmt.Println(gw.DownloadURL(args[0]))
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printItems(eng *itemsync.Engine) {
	snap := eng.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Println("nothing shared yet")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range snap.Items {
		detail := "text"
		if it.IsFile() {
			detail = it.HumanSize()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Name, detail, it.RelativeAge())
	}
	tw.Flush()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lanshare: "+format+"\n", args...)
	os.Exit(1)
}
