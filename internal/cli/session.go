package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mathgraph/internal/document"
	"github.com/roach88/mathgraph/internal/funcs"
	"github.com/roach88/mathgraph/internal/graph"
	"github.com/roach88/mathgraph/internal/output"
	"github.com/roach88/mathgraph/internal/value"
)

// NodeState is one Node's computed value as reported by the CLI.
type NodeState struct {
	Name       string `json:"name"`
	Func       string `json:"func,omitempty"`
	Value      any    `json:"value"`
	Connection string `json:"connection,omitempty"`

	display string
}

// OutputState is the output sink's contents.
type OutputState struct {
	Members []string `json:"members,omitempty"`
	Log     string   `json:"log,omitempty"`
}

// Report is one failure the graph recovered from.
type Report struct {
	Node  string `json:"node"`
	Error string `json:"error"`
}

// GraphState is the state every graph command reports.
type GraphState struct {
	Graph   string      `json:"graph,omitempty"`
	Nodes   []NodeState `json:"nodes"`
	Output  OutputState `json:"output"`
	Reports []Report    `json:"reports,omitempty"`
}

// session is one graph with the builtin library, an output sink and a
// console collecting reports.
type session struct {
	g       *graph.Graph
	sink    *output.Sink
	lib     *funcs.Library
	logger  *slog.Logger
	reports []Report
}

func newSession(opts *RootOptions, cmd *cobra.Command, extra ...graph.Option) *session {
	logger := newLogger(opts, cmd.ErrOrStderr())
	s := &session{
		lib:    funcs.Builtins(),
		logger: logger,
	}

	// JSON output is written once at the end; only text streams renders.
	var r output.Renderer
	if opts.Format != "json" {
		r = textRenderer{w: cmd.OutOrStdout()}
	}
	s.sink = output.New(r, output.WithLogger(logger))

	gopts := []graph.Option{
		graph.WithLogger(logger),
		graph.WithConsole(s),
		graph.WithSink(s.sink),
	}
	s.g = graph.New(append(gopts, extra...)...)
	return s
}

// Report implements graph.Console.
func (s *session) Report(node string, err error) {
	s.logger.Warn("node computation failed", "node", node, "error", err)
	s.reports = append(s.reports, Report{Node: node, Error: err.Error()})
}

// apply builds doc into the session graph.
func (s *session) apply(doc *document.Document) error {
	if err := document.Apply(s.g, doc, s.lib); err != nil {
		return WrapExitError(ExitFailure, "failed to apply document", err)
	}
	return nil
}

// state computes every Node in creation order.
func (s *session) state(name string) GraphState {
	st := GraphState{Graph: name, Nodes: []NodeState{}}
	for _, nodeName := range s.g.Names() {
		n, ok := s.g.Node(nodeName)
		if !ok {
			continue
		}
		v := n.Compute()
		ns := NodeState{Name: nodeName, Value: value.ToNative(v), display: value.Format(v)}
		if f, ok := n.Value().(*value.Func); ok {
			ns.Func = f.Name
		}
		if conn, ok := n.Connection(); ok {
			ns.Connection = conn.String()
		}
		st.Nodes = append(st.Nodes, ns)
	}
	st.Output.Members = s.sink.Members()
	if holder, ok := s.sink.LogHolder(); ok {
		st.Output.Log = holder
	}
	st.Reports = s.reports
	return st
}

// set applies a "node=value" or "node.param=value" assignment. The value
// is parsed as YAML, so 2, 2.5, "text" and [1, 2] all work.
func (s *session) set(assignment string) error {
	target, raw, ok := strings.Cut(assignment, "=")
	if !ok || target == "" {
		return fmt.Errorf("invalid assignment %q: want node=value or node.param=value", assignment)
	}
	var native any
	if err := yaml.Unmarshal([]byte(raw), &native); err != nil {
		return fmt.Errorf("assignment %q: %w", assignment, err)
	}
	v, err := value.FromNative(native)
	if err != nil {
		return fmt.Errorf("assignment %q: %w", assignment, err)
	}
	if node, param, ok := strings.Cut(target, "."); ok {
		return s.g.SetArg(node, param, graph.Literal(v))
	}
	return s.g.SetValue(target, v)
}

// readDocument loads a document file, mapping failures to exit codes.
func readDocument(path string) (*document.Document, error) {
	doc, err := document.ReadFile(path)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("document not found: %s", path), err)
	}
	return nil, WrapExitError(ExitFailure, fmt.Sprintf("failed to parse %s", path), err)
}

// layoutOf collects the positions recorded in doc.
func layoutOf(doc *document.Document) document.Layout {
	layout := make(document.Layout)
	for _, rec := range doc.Nodes {
		if rec.Position != nil {
			layout[rec.Name] = *rec.Position
		}
	}
	return layout
}

// textRenderer streams sink updates as text lines.
type textRenderer struct {
	w io.Writer
}

func (r textRenderer) RenderValue(name string, v value.Value) {
	fmt.Fprintf(r.w, "log %s = %s\n", name, value.Format(v))
}

func (r textRenderer) RenderSeries(entries []output.Entry) {
	for _, e := range entries {
		fmt.Fprintf(r.w, "series %s = %s\n", e.Name, value.Format(e.Value))
	}
}

func (st GraphState) writeText(w io.Writer) {
	if st.Graph != "" {
		fmt.Fprintf(w, "graph %s\n", st.Graph)
	}
	for _, n := range st.Nodes {
		label := n.Name
		if n.Func != "" {
			label = fmt.Sprintf("%s (%s)", n.Name, n.Func)
		}
		line := fmt.Sprintf("  %s = %s", label, n.display)
		if n.Connection != "" {
			line += " -> " + n.Connection
		}
		fmt.Fprintln(w, line)
	}
	if len(st.Output.Members) > 0 || st.Output.Log != "" {
		fmt.Fprintf(w, "output: members %v, log %q\n", st.Output.Members, st.Output.Log)
	}
	for _, r := range st.Reports {
		fmt.Fprintf(w, "! %s: %s\n", r.Node, r.Error)
	}
	if len(st.Reports) > 0 {
		fmt.Fprintf(w, "%d failure(s) reported\n", len(st.Reports))
	}
}
