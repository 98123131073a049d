package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// Unknown stands in for a title or broadcaster name the API did not give us.
const Unknown = "unknown"

// LiveStatus represents the state of a Bilibili live room.
type LiveStatus int

const (
	StatusOffline  LiveStatus = 0 // 未开播
	StatusLive     LiveStatus = 1 // 直播中
	StatusRotation LiveStatus = 2 // 轮播
)

func (s LiveStatus) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusLive:
		return "live"
	case StatusRotation:
		return "rotation"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// RoomInfo holds metadata about a live room and its broadcaster.
type RoomInfo struct {
	RoomID     int64      `json:"room_id"`
	Title      string     `json:"title"`
	UName      string     `json:"uname"`
	UID        int64      `json:"uid"`
	LiveStatus LiveStatus `json:"live_status"`
}

func (r *RoomInfo) IsLive() bool {
	return r.LiveStatus == StatusLive
}

type roomInfoData struct {
	RoomID     int64  `json:"room_id"`
	UID        int64  `json:"uid"`
	LiveStatus int    `json:"live_status"`
	Title      string `json:"title"`
}

// GetRoomInfo fetches room metadata and then the broadcaster's name. A failed
// broadcaster lookup does not fail the call; the name becomes Unknown.
func (c *Client) GetRoomInfo(ctx context.Context, roomID int64) (*RoomInfo, error) {
	params := url.Values{}
	params.Set("room_id", strconv.FormatInt(roomID, 10))

	raw, err := c.getData(ctx, EndpointRoomInfo, roomInfoPath, roomID, params)
	if err != nil {
		return nil, fmt.Errorf("get room info: %w", err)
	}

	var data roomInfoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse room info: %w", err)
	}

	info := &RoomInfo{
		RoomID:     data.RoomID,
		Title:      data.Title,
		UID:        data.UID,
		LiveStatus: LiveStatus(data.LiveStatus),
	}
	if info.RoomID == 0 {
		info.RoomID = roomID
	}
	if info.Title == "" {
		info.Title = Unknown
	}

	uname, err := c.anchorName(ctx, roomID)
	if err != nil {
		slog.Warn("anchor lookup failed, using placeholder", "room", roomID, "err", err)
		uname = Unknown
	}
	info.UName = uname

	return info, nil
}

// anchorName looks up the broadcaster name. This endpoint takes "roomid",
// not "room_id".
func (c *Client) anchorName(ctx context.Context, roomID int64) (string, error) {
	params := url.Values{}
	params.Set("roomid", strconv.FormatInt(roomID, 10))

	body, err := c.get(ctx, EndpointAnchorInfo, anchorInfoPath, roomID, params)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("parse json: invalid anchor response")
	}

	res := gjson.ParseBytes(body)
	if code := res.Get("code").Int(); code != 0 {
		return "", &APIError{Endpoint: EndpointAnchorInfo, Code: int(code), Message: res.Get("message").String()}
	}
	uname := res.Get("data.info.uname")
	if !uname.Exists() || uname.String() == "" {
		return "", fmt.Errorf("anchor name missing")
	}
	return uname.String(), nil
}
