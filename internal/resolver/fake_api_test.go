package resolver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

const (
	roomLiveJSON = `{"code":0,"msg":"ok","message":"ok","data":{"uid":12345,"room_id":22109408,"short_id":6,"live_status":1,"title":"晚间杂谈"}}`

	roomOfflineJSON = `{"code":0,"msg":"ok","message":"ok","data":{"uid":12345,"room_id":22109408,"live_status":0,"title":"晚间杂谈"}}`

	roomMissingJSON = `{"code":1,"msg":"房间不存在","message":"房间不存在","data":[]}`

	anchorJSON = `{"code":0,"msg":"success","message":"success","data":{"info":{"uid":12345,"uname":"小明"}}}`

	playTwoMirrorsJSON = `{"code":0,"message":"0","ttl":1,"data":{"room_id":22109408,"live_status":1,"playurl_info":{"playurl":{"stream":[
		{"protocol_name":"http_stream","format":[{"format_name":"flv","codec":[{"codec_name":"avc","current_qn":10000,"accept_qn":[10000],
			"base_url":"/live-bvc/1/live_1.flv?",
			"url_info":[
				{"host":"https://a.bilivideo.com","extra":"expires=1700000000&len=0&sign=x"},
				{"host":"https://b.bilivideo.com","extra":"expires=1800000000&len=0&sign=y"}
			]}]}]}
	]}}}}`

	playMixedJSON = `{"code":0,"message":"0","data":{"playurl_info":{"playurl":{"stream":[
		{"protocol_name":"http_stream","format":[{"format_name":"flv","codec":[
			{"codec_name":"avc","base_url":"/s.flv?","url_info":[{"host":"https://a.example","extra":"expires=1700000000&x=1"}]},
			{"codec_name":"hevc","base_url":"/s_hevc.flv?","url_info":[]}
		]}]},
		{"protocol_name":"http_hls","format":[
			{"format_name":"ts","codec":[{"codec_name":"avc","base_url":"/s.m3u8?","url_info":[{"host":"https://h.example","extra":"len=0&sign=z"}]}]},
			{"format_name":"fmp4","codec":[{"codec_name":"hevc","base_url":"/f.m3u8?","url_info":[{"host":"https://f.example","extra":"expires=abc&x=2"}]}]}
		]},
		{"protocol_name":"http_stream","format":[{"format_name":"flv","codec":[
			{"codec_name":"avc","base_url":"/s2.flv?","url_info":[{"host":"https://c.example","extra":"expires=1800000000"}]}
		]}]}
	]}}}}`

	playEmptyJSON = `{"code":0,"message":"0","data":{"playurl_info":null}}`

	playErrorJSON = `{"code":-400,"message":"参数错误","data":null}`
)

// fakeAPI serves canned bodies for the three live API endpoints and records
// the requests it receives.
type fakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	statuses map[string]int
	hits     map[string]int
	queries  map[string]url.Values
	headers  map[string]http.Header
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		bodies: map[string]string{
			roomInfoPath:   roomLiveJSON,
			anchorInfoPath: anchorJSON,
			playInfoPath:   playTwoMirrorsJSON,
		},
		statuses: map[string]int{},
		hits:     map[string]int{},
		queries:  map[string]url.Values{},
		headers:  map[string]http.Header{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	path := r.URL.Path
	f.hits[path]++
	f.queries[path] = r.URL.Query()
	f.headers[path] = r.Header.Clone()
	body, ok := f.bodies[path]
	status := f.statuses[path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(body))
}

func (f *fakeAPI) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeAPI) setStatus(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[path] = status
}

func (f *fakeAPI) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeAPI) query(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

func (f *fakeAPI) header(path string) http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[path]
}

func (f *fakeAPI) client(opts ...Option) *Client {
	base := []Option{WithAPIBase(f.srv.URL), WithLocation(time.UTC)}
	return NewClient(append(base, opts...)...)
}
