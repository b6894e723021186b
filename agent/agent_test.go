package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"student-roster-go/models"
)

type fakeStore struct {
	students []models.Student
	addErr   error
}

func (f *fakeStore) SearchByName(q string) []models.Student {
	var out []models.Student
	for _, s := range f.students {
		if strings.EqualFold(s.Nombre, q) {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeStore) SearchBySurname(q string) []models.Student {
	var out []models.Student
	for _, s := range f.students {
		if strings.EqualFold(s.Apellido, q) {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeStore) Add(n, a, c string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.students = append(f.students, models.Student{Nombre: n, Apellido: a, Curso: c})
	return nil
}

func (f *fakeStore) RenderListing() string {
	var b strings.Builder
	for _, s := range f.students {
		b.WriteString(s.Line() + "\n")
	}
	return b.String()
}

// chatServer replays canned completions and records the requests it saw.
type chatServer struct {
	mu       sync.Mutex
	replies  []string
	requests []map[string]any
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	c.requests = append(c.requests, body)

	idx := len(c.requests) - 1
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(c.replies[idx]))
}

func completion(message string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"qwen3:1.7b",` +
		`"choices":[{"index":0,"finish_reason":"stop","message":` + message + `}]}`
}

func toolCallMessage(id, name, args string) string {
	quoted, _ := json.Marshal(args)
	return `{"role":"assistant","content":"","tool_calls":[{"id":"` + id + `","type":"function",` +
		`"function":{"name":"` + name + `","arguments":` + string(quoted) + `}}]}`
}

func textMessage(text string) string {
	quoted, _ := json.Marshal(text)
	return `{"role":"assistant","content":` + string(quoted) + `}`
}

func newTestAgent(t *testing.T, store StudentStore, replies ...string) (*Agent, *chatServer) {
	t.Helper()
	cs := &chatServer{replies: replies}
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)
	a := New(Options{
		BaseURL:     srv.URL + "/v1",
		APIKey:      "test",
		Model:       "qwen3:1.7b",
		Temperature: 0.75,
		MaxSteps:    3,
	}, StudentTools(store), zap.NewNop())
	return a, cs
}

// toolOutputs returns the content of every tool message in a request.
func toolOutputs(req map[string]any) []string {
	var out []string
	msgs, _ := req["messages"].([]any)
	for _, m := range msgs {
		msg, _ := m.(map[string]any)
		if msg["role"] == "tool" {
			switch c := msg["content"].(type) {
			case string:
				out = append(out, c)
			case []any:
				for _, part := range c {
					p, _ := part.(map[string]any)
					if s, ok := p["text"].(string); ok {
						out = append(out, s)
					}
				}
			}
		}
	}
	return out
}

func TestRunPlainAnswer(t *testing.T) {
	a, cs := newTestAgent(t, &fakeStore{}, completion(textMessage("<think>hmm</think>Hola")))

	res, err := a.Run(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "<think>hmm</think>Hola", res.Data.Result)
	assert.Empty(t, res.Data.ToolCalls)

	require.Len(t, cs.requests, 1)
	assert.Equal(t, "qwen3:1.7b", cs.requests[0]["model"])
	tools, _ := cs.requests[0]["tools"].([]any)
	assert.Len(t, tools, 4)
}

func TestRunExecutesToolCalls(t *testing.T) {
	store := &fakeStore{students: []models.Student{{Nombre: "Ana", Apellido: "Gómez", Curso: "5A"}}}
	a, cs := newTestAgent(t, store,
		completion(toolCallMessage("call_1", ToolFindByName, `{"name":"Ana"}`)),
		completion(textMessage("Encontré a Ana Gómez (5A).")),
	)

	res, err := a.Run(context.Background(), "buscá a Ana")
	require.NoError(t, err)
	assert.Equal(t, "Encontré a Ana Gómez (5A).", res.Data.Result)
	assert.Equal(t, []string{ToolFindByName}, res.Data.ToolCalls)

	require.Len(t, cs.requests, 2)
	outputs := toolOutputs(cs.requests[1])
	require.Len(t, outputs, 1)
	assert.Equal(t, "📌 Ana Gómez - Curso: 5A", outputs[0])
}

func TestRunReportsInvalidArgumentsToModel(t *testing.T) {
	store := &fakeStore{}
	a, cs := newTestAgent(t, store,
		completion(toolCallMessage("call_1", ToolAddStudent, `{"name":"Ana"}`)),
		completion(textMessage("Falta el apellido.")),
	)

	_, err := a.Run(context.Background(), "agregá a Ana")
	require.NoError(t, err)
	assert.Empty(t, store.students)

	outputs := toolOutputs(cs.requests[1])
	require.Len(t, outputs, 1)
	assert.True(t, strings.HasPrefix(outputs[0], "Error: invalid arguments"), outputs[0])
}

func TestRunStopsAfterMaxSteps(t *testing.T) {
	a, cs := newTestAgent(t, &fakeStore{},
		completion(toolCallMessage("call_1", ToolListStudents, `{}`)),
	)

	_, err := a.Run(context.Background(), "loop")
	require.ErrorIs(t, err, ErrMaxSteps)
	assert.Len(t, cs.requests, 3)
}

func TestCallToolUnknown(t *testing.T) {
	a := New(Options{BaseURL: "http://localhost", Model: "m"}, StudentTools(&fakeStore{}), nil)
	assert.Equal(t, "Unknown tool: drop_table", a.callTool("drop_table", "{}"))
}

func TestCallToolEmptyArgs(t *testing.T) {
	store := &fakeStore{}
	a := New(Options{BaseURL: "http://localhost", Model: "m"}, StudentTools(store), nil)
	assert.Equal(t, "No students registered.", a.callTool(ToolListStudents, ""))
}

func TestCallToolBadJSON(t *testing.T) {
	a := New(Options{BaseURL: "http://localhost", Model: "m"}, StudentTools(&fakeStore{}), nil)
	out := a.callTool(ToolFindByName, `{"name":`)
	assert.True(t, strings.HasPrefix(out, "Error:"), out)
}

func TestStudentTools(t *testing.T) {
	store := &fakeStore{}
	tools := map[string]*Tool{}
	for _, tool := range StudentTools(store) {
		tools[tool.Name] = tool
	}
	require.Len(t, tools, 4)

	assert.Equal(t, `No students found with name "Ana".`, tools[ToolFindByName].Run(map[string]any{"name": "Ana"}))
	assert.Equal(t, "Student Ana Gómez added to course 5A.",
		tools[ToolAddStudent].Run(map[string]any{"name": "Ana", "surname": "Gómez", "course": "5A"}))
	assert.Equal(t, "📌 Ana Gómez - Curso: 5A", tools[ToolFindBySurname].Run(map[string]any{"surname": "gómez"}))
	assert.Equal(t, "📌 Ana Gómez - Curso: 5A\n", tools[ToolListStudents].Run(nil))

	store.addErr = errors.New("disk full")
	assert.Equal(t, "Error adding student: disk full",
		tools[ToolAddStudent].Run(map[string]any{"name": "Luis", "surname": "Pérez", "course": "4B"}))
}
