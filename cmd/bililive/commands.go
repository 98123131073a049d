package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	stream "github.com/MatchaCake/bilibili_stream_lib"
	"github.com/urfave/cli/v2"

	"github.com/christian-lee/bililive/internal/config"
	"github.com/christian-lee/bililive/internal/console"
	"github.com/christian-lee/bililive/internal/export"
	"github.com/christian-lee/bililive/internal/metrics"
	"github.com/christian-lee/bililive/internal/resolver"
	"github.com/christian-lee/bililive/internal/web"
)

func interactiveCommand() *cli.Command {
	return &cli.Command{
		Name:   "interactive",
		Usage:  "prompt for room IDs and print their streams (default)",
		Flags:  []cli.Flag{qnFlag()},
		Action: runInteractive,
	}
}

func runInteractive(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	con := console.New(newResolver(cfg), c.App.Reader, c.App.Writer, console.WithQuality(c.Int("qn")))
	return con.Run(c.Context)
}

func qnFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "qn",
		Usage: "stream quality code (0 uses the configured default)",
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "resolve one room and print its streams",
		ArgsUsage: "<room-id>",
		Flags: []cli.Flag{
			qnFlag(),
			&cli.BoolFlag{Name: "no-urls", Usage: "omit the flat urls list"},
			&cli.BoolFlag{Name: "no-metadata", Usage: "omit the nested streams_metadata"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "json, csv or text"},
			&cli.BoolFlag{Name: "bom", Usage: "prefix csv output with a UTF-8 BOM"},
		},
		Action: runGet,
	}
}

func runGet(c *cli.Context) error {
	roomID, err := roomArg(c)
	if err != nil {
		return err
	}
	format := c.String("format")
	switch format {
	case "json", "csv", "text":
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []resolver.InfoOption{
		resolver.WithQuality(c.Int("qn")),
		resolver.IncludeURLs(!c.Bool("no-urls")),
		resolver.IncludeMetadata(format == "text" || !c.Bool("no-metadata")),
	}
	info := newResolver(cfg).GetStreamInfo(c.Context, roomID, opts...)

	out := c.App.Writer
	switch {
	case format == "json" || info.Failed():
		if err := writeJSON(out, info); err != nil {
			return err
		}
	case format == "csv":
		w, err := export.NewCSVWriter(out, c.Bool("bom"))
		if err != nil {
			return err
		}
		if err := w.Write(info.Streams); err != nil {
			return err
		}
	case format == "text":
		r := info.RoomInfo
		fmt.Fprintf(out, "%s | %s (UID %d) | room %d\n", r.Title, r.UName, r.UID, r.RoomID)
		console.DisplayStreams(out, info.StreamsMetadata, time.Now(), time.Local)
	}

	if info.Failed() {
		return cli.Exit("", 1)
	}
	return nil
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "map a short room ID to the real room ID",
		ArgsUsage: "<room-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "url", Usage: "also print one playable stream URL"},
		},
		Action: func(c *cli.Context) error {
			roomID, err := roomArg(c)
			if err != nil {
				return err
			}
			realID, err := stream.ResolveRoomID(c.Context, roomID)
			if err != nil {
				return fmt.Errorf("resolve room %d: %w", roomID, err)
			}
			fmt.Fprintln(c.App.Writer, realID)

			if c.Bool("url") {
				u, err := stream.GetStreamURL(c.Context, realID)
				if err != nil {
					return fmt.Errorf("stream url for room %d: %w", realID, err)
				}
				fmt.Fprintln(c.App.Writer, u)
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the HTTP JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address (overrides config)"},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	hc, err := config.NewHotConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer hc.Close()

	cfg := hc.Get()
	addr := cfg.Web.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	m := metrics.New()
	srv := web.NewServer(newResolver(cfg, resolver.WithObserver(m)), addr, m, slog.Default())

	hc.OnReload(func(cfg *config.Config) {
		srv.UpdateResolver(newResolver(cfg, resolver.WithObserver(m)))
	})
	if err := hc.Watch(); err != nil {
		slog.Warn("config watch disabled", "err", err)
	}

	return srv.Run(c.Context)
}

func roomArg(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, cli.Exit("expected exactly one room ID", 2)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Exit(fmt.Sprintf("invalid room ID %q", c.Args().First()), 2)
	}
	return id, nil
}

// writeJSON indents v and leaves '&' in URLs unescaped.
func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
