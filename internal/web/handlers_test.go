package web

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaminalder/solo-tic-tac-toe/internal/app"
)

// heldMoves keeps deferred computer moves until the test releases them.
type heldMoves struct {
	mu sync.Mutex
	fs []func()
}

func (h *heldMoves) schedule(_ time.Duration, f func()) func() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fs = append(h.fs, f)
	return func() bool { return true }
}

func (h *heldMoves) release() {
	h.mu.Lock()
	fs := h.fs
	h.fs = nil
	h.mu.Unlock()
	for _, f := range fs {
		f()
	}
}

func newTestServer(t *testing.T) (*app.Service, *heldMoves, http.Handler) {
	t.Helper()
	held := &heldMoves{}
	s := app.NewServiceWithOptions(app.Options{Schedule: held.schedule})
	h := NewServer(s, WithHeartbeat(time.Hour))
	return s, held, h
}

func postForm(h http.Handler, path, playerID string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if playerID != "" {
		req.AddCookie(&http.Cookie{Name: playerCookie, Value: playerID})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, _, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<!doctype html>") || !strings.Contains(body, "htmx.org") {
		t.Fatalf("index should render the full page; got body: %q", body)
	}
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
}

func TestHealthz(t *testing.T) {
	_, _, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, _, h := newTestServer(t)
	rr := postForm(h, "/game", "", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == playerCookie {
			playerID = c.Value
		}
	}
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if !ok || gs.Owner == "" || gs.Owner != playerID {
		t.Fatalf("expected creator to own the game; cookie=%q game=%+v", playerID, gs)
	}
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
	svc, _, h := newTestServer(t)
	gs, _ := svc.CreateGame("")

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == playerCookie {
			playerID = c.Value
			break
		}
	}
	if playerID == "" {
		t.Fatalf("expected player_id cookie to be set")
	}
	latest, ok := svc.Get(gs.ID)
	if !ok || latest.Owner != playerID {
		t.Fatalf("expected auto-claim; have owner=%q pid=%q", latest.Owner, playerID)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if !strings.Contains(body, "id=\"board\"") || !strings.Contains(body, "X&#39;s turn") {
		t.Fatalf("expected board with status line; got body: %q", body)
	}
}

func TestGamePageUnknownID(t *testing.T) {
	_, _, h := newTestServer(t)
	for _, id := range []string{"not-a-uuid", "3f1c0a0e-8a4b-4d57-9a53-1f4f7b2f0c11"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/game/"+id, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %q, got %d", id, rr.Code)
		}
	}
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, _, h := newTestServer(t)
	gs, _ := svc.CreateGame("")
	p1 := app.NewPlayerID()

	rr := postForm(h, "/game/"+gs.ID+"/join", p1, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Owner != p1 {
		t.Fatalf("expected seat for p1, got owner=%q", latest.Owner)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, held, h := newTestServer(t)
	p1 := app.NewPlayerID()
	gs, _ := svc.CreateGame(p1)

	rr := postForm(h, "/game/"+gs.ID+"/play", p1, url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "id=\"board\" class=\"board o thinking\"") || !strings.Contains(body, "O&#39;s turn") {
		t.Fatalf("expected board fragment waiting on O, got %q", body)
	}
	if !strings.Contains(body, "O is thinking...") {
		t.Fatalf("expected pending computer move to be shown, got %q", body)
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves != 1 || !latest.Pending {
		t.Fatalf("expected move applied and computer pending, moves=%d pending=%v", latest.Game.Moves, latest.Pending)
	}

	// clicking while the computer thinks is rejected
	rr = postForm(h, "/game/"+gs.ID+"/play", p1, url.Values{"cell": {"0"}})
	if !strings.Contains(rr.Body.String(), "Not your turn") {
		t.Fatalf("expected turn error, got %q", rr.Body.String())
	}

	held.release()
	latest, _ = svc.Get(gs.ID)
	if latest.Game.Moves != 2 || latest.Pending {
		t.Fatalf("expected computer reply, moves=%d pending=%v", latest.Game.Moves, latest.Pending)
	}
	rr = postForm(h, "/game/"+gs.ID+"/join", p1, nil)
	body = rr.Body.String()
	if !strings.Contains(body, "class=\"board x\"") || strings.Contains(body, "O is thinking") {
		t.Fatalf("expected X hover class and no thinking line, got %q", body)
	}
}

func TestPlayEndpointErrors(t *testing.T) {
	svc, _, h := newTestServer(t)
	p1 := app.NewPlayerID()
	gs, _ := svc.CreateGame(p1)

	cases := []struct {
		name     string
		playerID string
		cell     string
		want     string
	}{
		{"not a number", p1, "abc", "Out of bounds"},
		{"too large", p1, "9", "Out of bounds"},
		{"negative", p1, "-1", "Out of bounds"},
		{"spectator", app.NewPlayerID(), "0", "You are a spectator"},
		{"missing cell", p1, "", "Choose a cell"},
		{"blank cell", p1, "  ", "Choose a cell"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postForm(h, "/game/"+gs.ID+"/play", tc.playerID, url.Values{"cell": {tc.cell}})
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, rr.Body.String())
			}
		})
	}

	rr := postForm(h, "/game/"+app.NewPlayerID()+"/play", p1, url.Values{"cell": {"0"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", rr.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	svc, held, h := newTestServer(t)
	p1 := app.NewPlayerID()
	gs, _ := svc.CreateGame(p1)

	postForm(h, "/game/"+gs.ID+"/play", p1, url.Values{"cell": {"4"}})
	rr := postForm(h, "/game/"+gs.ID+"/reset", p1, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "X&#39;s turn") {
		t.Fatalf("expected fresh board, got %q", rr.Body.String())
	}

	// the move scheduled before the reset must not land
	held.release()
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves != 0 || latest.Epoch != 1 {
		t.Fatalf("expected empty board after reset, moves=%d epoch=%d", latest.Game.Moves, latest.Epoch)
	}

	rr = postForm(h, "/game/"+gs.ID+"/reset", app.NewPlayerID(), nil)
	if !strings.Contains(rr.Body.String(), "You are a spectator") {
		t.Fatalf("expected spectator error, got %q", rr.Body.String())
	}
}

func TestPlayAgainShownOnlyWhenFinished(t *testing.T) {
	svc, held, h := newTestServer(t)
	p1 := app.NewPlayerID()
	gs, _ := svc.CreateGame(p1)

	rr := postForm(h, "/game/"+gs.ID+"/join", p1, nil)
	if strings.Contains(rr.Body.String(), "play-again") {
		t.Fatalf("play again must be hidden while the game runs")
	}

	// play until the game ends, always taking the lowest free cell
	for i := 0; i < 5; i++ {
		latest, _ := svc.Get(gs.ID)
		if latest.View().ShowPlayAgain {
			break
		}
		for _, c := range latest.View().Cells {
			if c.Playable {
				postForm(h, "/game/"+gs.ID+"/play", p1, url.Values{"cell": {strconv.Itoa(c.Index)}})
				break
			}
		}
		held.release()
	}
	latest, _ := svc.Get(gs.ID)
	if !latest.View().ShowPlayAgain {
		t.Fatalf("expected game to be over, board %s", latest.Game.Board)
	}
	rr = postForm(h, "/game/"+gs.ID+"/join", p1, nil)
	if !strings.Contains(rr.Body.String(), "id=\"play-again\"") {
		t.Fatalf("expected play again button, got %q", rr.Body.String())
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, _, h := newTestServer(t)
	rrCreate := postForm(h, "/game", "", nil)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestEventsStreamPushesComputerMove(t *testing.T) {
	svc, held, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	p1 := app.NewPlayerID()
	gs, _ := svc.CreateGame(p1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/game/"+gs.ID+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events request: %v", err)
	}
	defer resp.Body.Close()
	events := readEvents(resp.Body)

	first := <-events
	if !strings.Contains(first, "X&#39;s turn") {
		t.Fatalf("expected initial board event, got %q", first)
	}

	if _, err := svc.Play(gs.ID, p1, 4); err != nil {
		t.Fatalf("play: %v", err)
	}
	if ev := <-events; !strings.Contains(ev, "O&#39;s turn") {
		t.Fatalf("expected human move event, got %q", ev)
	}
	held.release()
	if ev := <-events; !strings.Contains(ev, "X&#39;s turn") {
		t.Fatalf("expected computer move event, got %q", ev)
	}
}

// readEvents returns the data of each "board" event as one string.
func readEvents(r io.Reader) <-chan string {
	out := make(chan string, 8)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		var data bytes.Buffer
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "data: "):
				data.WriteString(strings.TrimPrefix(line, "data: "))
				data.WriteByte('\n')
			case line == "" && data.Len() > 0:
				out <- data.String()
				data.Reset()
			}
		}
	}()
	return out
}

func TestWriteEventPrefixesEveryLine(t *testing.T) {
	var buf bytes.Buffer
	writeEvent(&buf, "board", []byte("<div>\n  <p>hi</p>\n</div>\n"))
	want := "event: board\ndata: <div>\ndata:   <p>hi</p>\ndata: </div>\n\n"
	if buf.String() != want {
		t.Fatalf("unexpected event framing:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestParsePlayForm(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr error
	}{
		{"4", 4, nil},
		{" 8 ", 8, nil},
		{"12", 12, nil}, // range is the game's call
		{"", 0, errNoCell},
		{"abc", 0, errBadCell},
		{"-1", 0, errBadCell},
		{"1.5", 0, errBadCell},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/", strings.NewReader(url.Values{"cell": {tc.raw}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		got, err := parsePlayForm(req)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("parse %q: expected %v, got %v", tc.raw, tc.wantErr, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parse %q: got %d, %v", tc.raw, got, err)
		}
	}
}
