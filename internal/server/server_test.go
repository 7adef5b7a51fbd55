package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"uipreview/internal/preview"
	"uipreview/internal/render"
	"uipreview/internal/render/structural"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T, cfg Config, doc DocumentFunc) (*Server, *httptest.Server) {
	t.Helper()
	ctrl := preview.NewController(preview.Config{}, testLogger())
	ctrl.Register(structural.New())
	srv := New(cfg, ctrl, doc, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(srv.hub.Close)
	return srv, ts
}

func postRender(t *testing.T, ts *httptest.Server, text string) *http.Response {
	t.Helper()
	body, err := json.Marshal(renderRequest{Text: text})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/render", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRenderEndpoint(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp := postRender(t, ts, `<StackPanel><Button x:Name="Ok" Content="OK"/></StackPanel>`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Result == nil || out.Result.Failure != nil {
		t.Fatalf("expected success, got %+v", out.Result)
	}
	if !strings.Contains(out.Result.Payload, "OK") {
		t.Errorf("payload missing rendered content")
	}
	if len(out.Source) == 0 {
		t.Fatal("expected source correlation records")
	}
	found := false
	for _, rec := range out.Source {
		if rec.Name == "Ok" && rec.Type == "Button" {
			found = true
		}
	}
	if !found {
		t.Errorf("no record for named button: %+v", out.Source)
	}
}

func TestRenderMethodNotAllowed(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp, err := http.Get(ts.URL + "/render")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRenderInvalidBody(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp, err := http.Post(ts.URL+"/render", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestRenderRateLimit(t *testing.T) {
	_, ts := testServer(t, Config{RendersPerMinute: 60, Burst: 1}, nil)

	first := postRender(t, ts, `<Button Content="A"/>`)
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second := postRender(t, ts, `<Button Content="B"/>`)
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestRenderersEndpoint(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp, err := http.Get(ts.URL + "/renderers")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var infos []render.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Type != render.RendererStructural || !infos[0].Available {
		t.Fatalf("renderers = %+v", infos)
	}
}

func TestSourceEndpoint(t *testing.T) {
	const doc = "<Grid>\n  <Button x:Name=\"Save\" Content=\"Save\"/>\n</Grid>"
	_, ts := testServer(t, Config{}, func() (string, string, bool) {
		return "/proj/MainWindow.xaml", doc, true
	})

	resp, err := http.Get(ts.URL + "/source?line=2&col=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out sourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Tag != "Button" || out.Name != "Save" {
		t.Errorf("source = %+v", out)
	}
	if out.Path != "/proj/MainWindow.xaml" {
		t.Errorf("path = %q", out.Path)
	}
}

func TestSourceWithoutDocument(t *testing.T) {
	_, ts := testServer(t, Config{}, nil)

	resp, err := http.Get(ts.URL + "/source?line=1&col=1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSourceBadCoordinates(t *testing.T) {
	_, ts := testServer(t, Config{}, func() (string, string, bool) {
		return "a.xaml", "<Grid/>", true
	})

	resp, err := http.Get(ts.URL + "/source?line=x&col=1")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLiveBroadcast(t *testing.T) {
	srv, ts := testServer(t, Config{}, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	srv.Hub().Broadcast(map[string]string{"event": "render"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var msg map[string]string
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg["event"] != "render" {
		t.Errorf("message = %v", msg)
	}
}

func TestLiveClientDisconnect(t *testing.T) {
	srv, ts := testServer(t, Config{}, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
