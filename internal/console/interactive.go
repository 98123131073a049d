// Package console implements the interactive room lookup loop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/christian-lee/bililive/internal/resolver"
)

// Resolver is the subset of *resolver.Client the console needs.
type Resolver interface {
	GetRoomInfo(ctx context.Context, roomID int64) (*resolver.RoomInfo, error)
	GetAllStreams(ctx context.Context, roomID int64, qn int) (resolver.StreamsMetadata, error)
}

type Console struct {
	r       Resolver
	in      io.Reader
	out     io.Writer
	quality int
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Console)

// WithQuality sets the qn passed to GetAllStreams (0 = resolver default).
func WithQuality(qn int) Option {
	return func(c *Console) { c.quality = qn }
}

// WithClock overrides the time source used for "remaining" durations.
func WithClock(now func() time.Time) Option {
	return func(c *Console) { c.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Console) { c.loc = loc }
}

func New(r Resolver, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		r:   r,
		in:  in,
		out: out,
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run prompts for room IDs until "0", end of input, or ctx is cancelled.
// A panic inside the loop is reported and returned as an error.
func (c *Console) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(c.out, "\nUnexpected error: %v\n", r)
			err = fmt.Errorf("console: %v", r)
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, "Bilibili live stream resolver")
	fmt.Fprintln(c.out, mediumRule)

	for {
		fmt.Fprint(c.out, "\nEnter a Bilibili room ID (0 to exit): ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out, "\nInterrupted, exiting")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "0" {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}

		roomID, ok := parseRoomID(line)
		if !ok {
			fmt.Fprintln(c.out, "Please enter a numeric room ID")
			continue
		}

		c.lookup(ctx, roomID)
		fmt.Fprintln(c.out, "\n"+wideRule)
	}
}

func (c *Console) lookup(ctx context.Context, roomID int64) {
	fmt.Fprintln(c.out, "\nFetching room info...")
	info, err := c.r.GetRoomInfo(ctx, roomID)
	if err != nil {
		slog.Debug("room info lookup failed", "room", roomID, "err", err)
		fmt.Fprintf(c.out, "Could not get room info (%v). Check that the room ID is correct.\n", err)
		return
	}

	status := "not live"
	if info.IsLive() {
		status = "live"
	}
	fmt.Fprintf(c.out, "\nTitle:       %s\n", info.Title)
	fmt.Fprintf(c.out, "Broadcaster: %s\n", info.UName)
	fmt.Fprintf(c.out, "UID:         %d\n", info.UID)
	fmt.Fprintf(c.out, "Status:      %s\n", status)

	if !info.IsLive() {
		fmt.Fprintln(c.out, "This room is not live right now")
		return
	}

	fmt.Fprintln(c.out, "\nFetching stream URLs...")
	streams, err := c.r.GetAllStreams(ctx, roomID, c.quality)
	if err != nil {
		slog.Debug("stream lookup failed", "room", roomID, "err", err)
		fmt.Fprintf(c.out, "Could not get stream URLs (%v)\n", err)
		return
	}

	DisplayStreams(c.out, streams, c.now(), c.loc)
	PrintPlayerHelp(c.out)
}

// parseRoomID accepts only a plain run of ASCII digits.
func parseRoomID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
