package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/jaminalder/solo-tic-tac-toe/internal/app"
)

const playerCookie = "player_id"

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"lower": strings.ToLower,
		"add":   func(a, b int) int { return a + b },
		"mul":   func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(baseTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1>
<p>You are X. The computer plays O.</p>
<form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board-container" hx-sse="swap:board">{{.BoardHTML}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const baseTemplate = `<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row { display: flex; }
.cell { width: 4rem; height: 4rem; font-size: 2rem; }
.cell.winning { background: #ffe08a; }
.status { font-weight: bold; }
.board.x .cell:enabled:hover::after { content: "X"; opacity: .4; }
.board.thinking .cell { cursor: wait; }
.thinking { font-style: italic; }
</style>
</head><body>{{template "content" .}}</body></html>`

const boardTemplate = `
<div id="board" class="board{{with .View.Turn}} {{.}}{{end}}{{if .View.Thinking}} thinking{{end}}">
  <p class="status" id="status">{{.View.Status}}</p>
  {{if .View.Thinking}}
  <p class="thinking" id="thinking">O is thinking...</p>
  {{end}}
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}{{with index $.View.Cells (add (mul $r 3) $c)}}
      <form hx-post="/game/{{$.View.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit" data-cell="{{.Index}}" class="cell{{if .Mark}} {{lower .Mark}}{{end}}{{if .Winning}} winning{{end}}"{{if not .Playable}} disabled{{end}}>{{.Mark}}</button>
      </form>
    {{end}}{{end}}
  </div>
  {{end}}
  {{if .View.ShowPlayAgain}}
  <form hx-post="/game/{{.View.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post">
    <button id="play-again" type="submit">Play again</button>
  </form>
  {{end}}
</div>
`

type boardData struct {
	View  app.View
	Error string
}

// ensurePlayerCookie returns the caller's player id, issuing a new one when
// the cookie is missing or malformed.
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookie); err == nil && app.ValidID(c.Value) {
		return c.Value
	}
	v := app.NewPlayerID()
	http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return v
}
