package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ExpiresTimeLayout formats expiry timestamps for display.
const ExpiresTimeLayout = "2006-01-02 15:04:05"

// StreamRecord is one playable URL flattened out of StreamsMetadata.
type StreamRecord struct {
	Index       int     `json:"index"` // 1-based within its codec
	Protocol    string  `json:"protocol"`
	Format      string  `json:"format"`
	Codec       string  `json:"codec"`
	URL         string  `json:"url"`
	Expires     *int64  `json:"expires"`
	ExpiresTime *string `json:"expires_time"`
}

// StreamInfo is the result of GetStreamInfo: either a full lookup or only
// Error. Room info and streams are never set alongside an error.
type StreamInfo struct {
	Error           string          `json:"error,omitempty"`
	RoomInfo        *RoomInfo       `json:"room_info,omitempty"`
	URLs            []string        `json:"urls,omitempty"`
	StreamsMetadata StreamsMetadata `json:"streams_metadata,omitempty"`
	Streams         []StreamRecord  `json:"streams,omitempty"`

	err error
}

func (s *StreamInfo) Failed() bool {
	return s.Error != ""
}

// Err returns the cause of a failed lookup, for use with errors.Is/As.
func (s *StreamInfo) Err() error {
	return s.err
}

// MarshalJSON writes {"error": ...} alone for failures. For successes the
// "urls" key is present (possibly empty) whenever URLs were requested.
func (s StreamInfo) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return marshalNoEscape(struct {
			Error string `json:"error"`
		}{s.Error})
	}

	out := struct {
		RoomInfo        *RoomInfo       `json:"room_info"`
		URLs            *[]string       `json:"urls,omitempty"`
		StreamsMetadata StreamsMetadata `json:"streams_metadata,omitempty"`
		Streams         []StreamRecord  `json:"streams"`
	}{
		RoomInfo:        s.RoomInfo,
		StreamsMetadata: s.StreamsMetadata,
		Streams:         s.Streams,
	}
	if s.URLs != nil {
		out.URLs = &s.URLs
	}
	if out.Streams == nil {
		out.Streams = []StreamRecord{}
	}
	return marshalNoEscape(out)
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type infoOptions struct {
	quality         int
	includeURLs     bool
	includeMetadata bool
}

type InfoOption func(*infoOptions)

// WithQuality selects the qn for the stream lookup.
func WithQuality(qn int) InfoOption {
	return func(o *infoOptions) { o.quality = qn }
}

// WithoutURLs leaves out the flat URL list.
func WithoutURLs() InfoOption {
	return func(o *infoOptions) { o.includeURLs = false }
}

// WithoutMetadata leaves out the nested streams_metadata.
func WithoutMetadata() InfoOption {
	return func(o *infoOptions) { o.includeMetadata = false }
}

// IncludeURLs and IncludeMetadata map boolean flags onto options.
func IncludeURLs(include bool) InfoOption {
	return func(o *infoOptions) { o.includeURLs = include }
}

func IncludeMetadata(include bool) InfoOption {
	return func(o *infoOptions) { o.includeMetadata = include }
}

// GetStreamInfo resolves the room, checks it is live, resolves its streams
// and flattens them. It never returns an error: every failure is logged and
// reported through StreamInfo.Error.
func (c *Client) GetStreamInfo(ctx context.Context, roomID int64, opts ...InfoOption) *StreamInfo {
	o := infoOptions{quality: c.quality, includeURLs: true, includeMetadata: true}
	for _, opt := range opts {
		opt(&o)
	}

	room, err := c.GetRoomInfo(ctx, roomID)
	if err != nil {
		slog.Warn("room info unavailable", "room", roomID, "err", err)
		return failed(fmt.Sprintf("failed to get room info: %v", err), err)
	}

	if !room.IsLive() {
		return failed(fmt.Sprintf("room %d is not currently live", roomID),
			fmt.Errorf("room %d (%s): %w", roomID, room.LiveStatus, ErrNotLive))
	}

	streams, err := c.GetAllStreams(ctx, roomID, o.quality)
	if err != nil {
		slog.Warn("stream data unavailable", "room", roomID, "qn", o.quality, "err", err)
		return failed(fmt.Sprintf("failed to get stream data: %v", err), err)
	}

	info := &StreamInfo{RoomInfo: room}

	if o.includeURLs {
		urls := make([]string, 0, streams.Len())
		streams.Each(func(_, _, _ string, _ int, u StreamURL) {
			if u.URL != "" {
				urls = append(urls, u.URL)
			}
		})
		info.URLs = urls
	}

	if o.includeMetadata {
		info.StreamsMetadata = streams
	}

	info.Streams = c.flatten(streams)

	slog.Debug("resolved streams", "room", roomID, "title", room.Title, "count", len(info.Streams))
	return info
}

func failed(msg string, err error) *StreamInfo {
	return &StreamInfo{Error: msg, err: err}
}

func (c *Client) flatten(streams StreamsMetadata) []StreamRecord {
	records := make([]StreamRecord, 0, streams.Len())
	streams.Each(func(protocol, format, codec string, index int, u StreamURL) {
		rec := StreamRecord{
			Index:    index,
			Protocol: protocol,
			Format:   format,
			Codec:    codec,
			URL:      u.URL,
			Expires:  u.Expires,
		}
		if u.Expires != nil && *u.Expires != 0 {
			ts := FormatExpires(*u.Expires, c.loc)
			rec.ExpiresTime = &ts
		}
		records = append(records, rec)
	})
	return records
}

// FormatExpires renders an epoch-seconds expiry in loc (local time if nil).
func FormatExpires(expires int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(expires, 0).In(loc).Format(ExpiresTimeLayout)
}
