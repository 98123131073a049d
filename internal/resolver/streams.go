package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// StreamURL is one mirror of a stream, with the expiry parsed from its query.
type StreamURL struct {
	URL     string `json:"url"`
	Expires *int64 `json:"expires"`
}

type CodecStreams struct {
	Name string
	URLs []StreamURL
}

type FormatStreams struct {
	Name   string
	Codecs []CodecStreams
}

type ProtocolStreams struct {
	Name    string
	Formats []FormatStreams
}

// StreamsMetadata groups stream URLs by protocol, format and codec, keeping
// the order the API returned them in. It encodes to JSON as nested objects
// (protocol → format → codec → [{url, expires}]).
type StreamsMetadata []ProtocolStreams

// Lookup returns the URLs for one protocol/format/codec combination.
func (m StreamsMetadata) Lookup(protocol, format, codec string) []StreamURL {
	for _, p := range m {
		if p.Name != protocol {
			continue
		}
		for _, f := range p.Formats {
			if f.Name != format {
				continue
			}
			for _, c := range f.Codecs {
				if c.Name == codec {
					return c.URLs
				}
			}
		}
	}
	return nil
}

// Each calls fn for every URL in order. index is 1-based within its codec.
func (m StreamsMetadata) Each(fn func(protocol, format, codec string, index int, u StreamURL)) {
	for _, p := range m {
		for _, f := range p.Formats {
			for _, c := range f.Codecs {
				for i, u := range c.URLs {
					fn(p.Name, f.Name, c.Name, i+1, u)
				}
			}
		}
	}
}

// Len returns the total number of URLs.
func (m StreamsMetadata) Len() int {
	n := 0
	m.Each(func(string, string, string, int, StreamURL) { n++ })
	return n
}

// set stores urls under protocol/format/codec. Existing protocol and format
// entries are reused; an existing codec entry is replaced in place.
func (m *StreamsMetadata) set(protocol, format, codec string, urls []StreamURL) {
	pi := -1
	for i := range *m {
		if (*m)[i].Name == protocol {
			pi = i
			break
		}
	}
	if pi < 0 {
		*m = append(*m, ProtocolStreams{Name: protocol})
		pi = len(*m) - 1
	}
	p := &(*m)[pi]

	fi := -1
	for i := range p.Formats {
		if p.Formats[i].Name == format {
			fi = i
			break
		}
	}
	if fi < 0 {
		p.Formats = append(p.Formats, FormatStreams{Name: format})
		fi = len(p.Formats) - 1
	}
	f := &p.Formats[fi]

	for i := range f.Codecs {
		if f.Codecs[i].Name == codec {
			f.Codecs[i].URLs = urls
			return
		}
	}
	f.Codecs = append(f.Codecs, CodecStreams{Name: codec, URLs: urls})
}

func (m StreamsMetadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoder.Encode appends a newline; strip it so the output nests cleanly.
	write := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		return nil
	}

	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := write(p.Name); err != nil {
			return nil, err
		}
		buf.WriteString(":{")
		for j, f := range p.Formats {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := write(f.Name); err != nil {
				return nil, err
			}
			buf.WriteString(":{")
			for k, c := range f.Codecs {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := write(c.Name); err != nil {
					return nil, err
				}
				buf.WriteByte(':')
				urls := c.URLs
				if urls == nil {
					urls = []StreamURL{}
				}
				if err := write(urls); err != nil {
					return nil, err
				}
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// playInfoData is the data part of getRoomPlayInfo.
type playInfoData struct {
	RoomID      int64 `json:"room_id"`
	LiveStatus  int   `json:"live_status"`
	PlayURLInfo *struct {
		PlayURL *struct {
			Stream []streamData `json:"stream"`
		} `json:"playurl"`
	} `json:"playurl_info"`
}

type streamData struct {
	ProtocolName string         `json:"protocol_name"` // http_stream, http_hls
	Format       []streamFormat `json:"format"`
}

type streamFormat struct {
	FormatName string        `json:"format_name"` // flv, ts, fmp4
	Codec      []streamCodec `json:"codec"`
}

type streamCodec struct {
	CodecName string    `json:"codec_name"` // avc, hevc
	BaseURL   string    `json:"base_url"`
	URLInfo   []urlInfo `json:"url_info"`
	CurrentQn int       `json:"current_qn"`
	AcceptQn  []int     `json:"accept_qn"`
}

type urlInfo struct {
	Host  string `json:"host"`
	Extra string `json:"extra"`
}

func (d *playInfoData) streams() []streamData {
	if d.PlayURLInfo == nil || d.PlayURLInfo.PlayURL == nil {
		return nil
	}
	return d.PlayURLInfo.PlayURL.Stream
}

// GetAllStreams requests every protocol/format/codec combination at quality
// qn (the client default when qn <= 0) and groups the resulting URLs.
// It returns ErrNoStreams when the room yields no URL at all.
func (c *Client) GetAllStreams(ctx context.Context, roomID int64, qn int) (StreamsMetadata, error) {
	if qn <= 0 {
		qn = c.quality
	}

	params := url.Values{}
	params.Set("room_id", strconv.FormatInt(roomID, 10))
	params.Set("protocol", "0,1") // 0=http_stream, 1=http_hls
	params.Set("format", "0,1,2") // 0=flv, 1=ts, 2=fmp4
	params.Set("codec", "0,1")    // 0=avc, 1=hevc
	params.Set("qn", strconv.Itoa(qn))
	params.Set("platform", "web")
	params.Set("ptype", "16")

	raw, err := c.getData(ctx, EndpointPlayInfo, playInfoPath, roomID, params)
	if err != nil {
		return nil, fmt.Errorf("get play info: %w", err)
	}

	var data playInfoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse play info: %w", err)
	}

	var result StreamsMetadata
	for _, s := range data.streams() {
		for _, f := range s.Format {
			for _, codec := range f.Codec {
				if len(codec.URLInfo) == 0 {
					continue
				}
				urls := make([]StreamURL, 0, len(codec.URLInfo))
				for _, ui := range codec.URLInfo {
					full := ui.Host + codec.BaseURL + ui.Extra
					urls = append(urls, StreamURL{URL: full, Expires: ParseExpires(full)})
				}
				result.set(s.ProtocolName, f.FormatName, codec.CodecName, urls)
			}
		}
	}

	if len(result) == 0 {
		return nil, ErrNoStreams
	}
	return result, nil
}

// ParseExpires extracts the integer after the first "expires=" in rawURL, up
// to the next '&'. It returns nil when the parameter is missing or not a
// number.
func ParseExpires(rawURL string) *int64 {
	const key = "expires="
	i := strings.Index(rawURL, key)
	if i < 0 {
		return nil
	}
	v := rawURL[i+len(key):]
	if j := strings.IndexByte(v, '&'); j >= 0 {
		v = v[:j]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
