package resolver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestGetRoomInfo(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()

	info, err := c.GetRoomInfo(context.Background(), 6)
	if err != nil {
		t.Fatalf("GetRoomInfo: %v", err)
	}

	want := RoomInfo{RoomID: 22109408, Title: "晚间杂谈", UName: "小明", UID: 12345, LiveStatus: StatusLive}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
	if !info.IsLive() {
		t.Error("IsLive should be true")
	}

	if got := api.query(roomInfoPath).Get("room_id"); got != "6" {
		t.Errorf("room_id param = %q", got)
	}
	if got := api.query(anchorInfoPath).Get("roomid"); got != "6" {
		t.Errorf("anchor roomid param = %q", got)
	}
}

func TestGetRoomInfo_headers(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client(WithUserAgent("test-agent/1.0"))

	if _, err := c.GetRoomInfo(context.Background(), 6); err != nil {
		t.Fatalf("GetRoomInfo: %v", err)
	}
	for _, path := range []string{roomInfoPath, anchorInfoPath} {
		h := api.header(path)
		if got := h.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("%s User-Agent = %q", path, got)
		}
		if got := h.Get("Referer"); got != "https://live.bilibili.com/6" {
			t.Errorf("%s Referer = %q", path, got)
		}
	}
}

func TestGetRoomInfo_apiError(t *testing.T) {
	api := newFakeAPI(t)
	api.set(roomInfoPath, roomMissingJSON)

	_, err := api.client().GetRoomInfo(context.Background(), 404)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 1 || apiErr.Endpoint != EndpointRoomInfo {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if api.hitCount(anchorInfoPath) != 0 {
		t.Error("anchor endpoint should not be called after a room info failure")
	}
}

func TestGetRoomInfo_httpStatus(t *testing.T) {
	api := newFakeAPI(t)
	api.setStatus(roomInfoPath, http.StatusInternalServerError)

	if _, err := api.client().GetRoomInfo(context.Background(), 6); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestGetRoomInfo_badJSON(t *testing.T) {
	api := newFakeAPI(t)
	api.set(roomInfoPath, "<html>blocked</html>")

	if _, err := api.client().GetRoomInfo(context.Background(), 6); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetRoomInfo_anchorFallback(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"api error", `{"code":-1,"message":"err","data":null}`, 0},
		{"missing name", `{"code":0,"data":{"info":{}}}`, 0},
		{"not json", `oops`, 0},
		{"http error", anchorJSON, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.set(anchorInfoPath, tt.body)
			api.setStatus(anchorInfoPath, tt.status)

			info, err := api.client().GetRoomInfo(context.Background(), 6)
			if err != nil {
				t.Fatalf("GetRoomInfo: %v", err)
			}
			if info.UName != Unknown {
				t.Errorf("uname = %q, want %q", info.UName, Unknown)
			}
			if info.Title != "晚间杂谈" || info.UID != 12345 {
				t.Errorf("rest of room info lost: %+v", info)
			}
		})
	}
}

func TestGetRoomInfo_defaults(t *testing.T) {
	api := newFakeAPI(t)
	api.set(roomInfoPath, `{"code":0,"data":{"uid":1,"live_status":2}}`)

	info, err := api.client().GetRoomInfo(context.Background(), 777)
	if err != nil {
		t.Fatalf("GetRoomInfo: %v", err)
	}
	if info.RoomID != 777 {
		t.Errorf("room id = %d, want requested id 777", info.RoomID)
	}
	if info.Title != Unknown {
		t.Errorf("title = %q, want %q", info.Title, Unknown)
	}
	if info.LiveStatus != StatusRotation || info.IsLive() {
		t.Errorf("live status = %v", info.LiveStatus)
	}
}

func TestGetRoomInfo_unreachable(t *testing.T) {
	c := NewClient(WithAPIBase("http://127.0.0.1:1"), WithTimeout(2*time.Second))
	if _, err := c.GetRoomInfo(context.Background(), 6); err == nil {
		t.Fatal("expected error for unreachable host")
	}
}

func TestLiveStatus_String(t *testing.T) {
	tests := map[LiveStatus]string{
		StatusOffline:  "offline",
		StatusLive:     "live",
		StatusRotation: "rotation",
		LiveStatus(9):  "status(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

type recordingObserver struct {
	calls []string
	errs  int
}

func (o *recordingObserver) ObserveUpstream(endpoint string, _ time.Duration, err error) {
	o.calls = append(o.calls, endpoint)
	if err != nil {
		o.errs++
	}
}

func TestClient_observer(t *testing.T) {
	api := newFakeAPI(t)
	api.setStatus(anchorInfoPath, http.StatusServiceUnavailable)
	obs := &recordingObserver{}

	if _, err := api.client(WithObserver(obs)).GetRoomInfo(context.Background(), 6); err != nil {
		t.Fatalf("GetRoomInfo: %v", err)
	}
	if len(obs.calls) != 2 || obs.calls[0] != EndpointRoomInfo || obs.calls[1] != EndpointAnchorInfo {
		t.Errorf("calls = %v", obs.calls)
	}
	if obs.errs != 1 {
		t.Errorf("errs = %d, want 1", obs.errs)
	}
}
