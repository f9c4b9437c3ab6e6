// Package dashboard is a purely observational websocket push-view over a
// running mta.Container: it renders each task's state index, value, and
// policy action (the page shows no exploration-sufficiency flag), and pushes
// the CellUpdate snapshot the demo driver publishes after each of a task's
// steps. It never calls back into the core.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"mtafrmax/demo"
	"mtafrmax/mta"
)

const indexTemplate = `
<!DOCTYPE html>
<html>
<head><title>mtafrmax</title></head>
<body>
<h1>Tasks</h1>
{{range .}}
<h2>{{.Name}}</h2>
<table border="1">
<tr><th>State</th><th>Value</th><th>Policy Action</th></tr>
{{range .Rows}}
<tr><td>{{.State}}</td><td>{{.Value}}</td><td>{{.Action}}</td></tr>
{{end}}
</table>
{{end}}
</body>
</html>
`

type taskRow struct {
	State  int
	Value  float64
	Action int
}

type taskView struct {
	Name string
	Rows []taskRow
}

// Server serves the index page and per-task websocket feeds, fanning the
// demo driver's single update stream out to every task's subscribers.
type Server struct {
	addr      string
	container *mta.Container
	router    *mux.Router
	tmpl      *template.Template

	mu          sync.Mutex
	subscribers map[string][]chan demo.CellUpdate
}

// NewServer wires routes for "/" and "/ws/{task}" and starts fanning
// driver.Updates() out to per-task subscriber channels.
func NewServer(ctx context.Context, addr string, container *mta.Container, driver *demo.Driver) (*Server, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("dashboard: parse template: %w", err)
	}

	s := &Server{
		addr:        addr,
		container:   container,
		tmpl:        tmpl,
		subscribers: make(map[string][]chan demo.CellUpdate),
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/{task}", s.serveWebsocket).Methods(http.MethodGet)

	go s.fanOut(ctx, driver.Updates())

	return s, nil
}

// Serve blocks, serving HTTP until it fails.
func (s *Server) Serve() error {
	if err := http.ListenAndServe(s.addr, s.router); err != nil {
		return fmt.Errorf("dashboard: serve: %w", err)
	}
	return nil
}

func (s *Server) fanOut(ctx context.Context, updates <-chan demo.CellUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.mu.Lock()
			for _, sub := range s.subscribers[update.Task] {
				select {
				case sub <- update:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) subscribe(task string) chan demo.CellUpdate {
	ch := make(chan demo.CellUpdate, 16)
	s.mu.Lock()
	s.subscribers[task] = append(s.subscribers[task], ch)
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(task string, ch chan demo.CellUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subscribers[task]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[task] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	task := mux.Vars(r)["task"]
	if s.container.Task(task) == nil {
		http.Error(w, "unknown task", http.StatusNotFound)
		return
	}

	sub := s.subscribe(task)
	defer s.unsubscribe(task, sub)

	client, err := NewClient[demo.CellUpdate](sub, w, r)
	if err != nil {
		return
	}

	_ = client.Sync(r.Context())
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	var views []taskView
	for _, t := range s.container.Tasks() {
		var rows []taskRow
		for state := 0; state < t.StateSize; state++ {
			rows = append(rows, taskRow{
				State:  state,
				Value:  t.Values[state],
				Action: t.Planner.Actions[state],
			})
		}
		views = append(views, taskView{Name: t.Name, Rows: rows})
	}

	w.Header().Set("Content-Type", "text/html")
	if err := s.tmpl.Execute(w, views); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
