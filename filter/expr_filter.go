package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/trctl/transmission"
)

// ExprFilter represents a compiled expr filter
type ExprFilter struct {
	program *vm.Program
	expr    string
	// fields are the torrent fields the expression refers to
	fields []string
}

// helpers are available in every expression. Torrent fields are added per
// evaluation under their RPC names, e.g. name, percentDone, addedDate.
func helpers() map[string]any {
	return map[string]any{
		// Date helpers; torrent dates are unix seconds
		"daysSince": func(ts any) int {
			sec, ok := toInt64(ts)
			if !ok || sec <= 0 {
				return 0
			}
			return int(time.Since(time.Unix(sec, 0)).Hours() / 24)
		},
		"daysAgo": func(days any) int64 {
			n, _ := toInt64(days)
			return time.Now().AddDate(0, 0, -int(n)).Unix()
		},
		"now": func() int64 {
			return time.Now().Unix()
		},

		// Size helpers, e.g. totalSize > bytes("4 GB")
		"bytes": func(s string) int64 {
			n, err := humanize.ParseBytes(s)
			if err != nil {
				return 0
			}
			return int64(n)
		},

		// String helpers
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"endsWith": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

// CompileExprFilter compiles an expr filter expression
func CompileExprFilter(expression string) (*ExprFilter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, &Error{Stage: StageCompile, Expression: expression, Err: ErrEmptyExpression}
	}

	env := helpers()
	env["has"] = func(field string) bool { return false }
	env["fileCount"] = func() int { return 0 }

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &Error{Stage: StageCompile, Expression: expression, Err: err}
	}

	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, &Error{Stage: StageCompile, Expression: expression, Err: err}
	}

	return &ExprFilter{
		program: program,
		expr:    expression,
		fields:  referencedFields(tree.Node, env),
	}, nil
}

// identifierCollector gathers every identifier an expression mentions.
type identifierCollector struct {
	names map[string]struct{}
}

func (c *identifierCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		c.names[id.Value] = struct{}{}
	}
}

// referencedFields returns the identifiers of node that are not helpers.
func referencedFields(node ast.Node, env map[string]any) []string {
	c := &identifierCollector{names: make(map[string]struct{})}
	ast.Walk(&node, c)

	fields := make([]string, 0, len(c.names))
	for name := range c.names {
		if _, ok := env[name]; ok {
			continue
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// missingField reports the first referenced field the torrent does not carry.
func (f *ExprFilter) missingField(torrent transmission.Torrent) (string, bool) {
	for _, field := range f.fields {
		if v, ok := torrent[field]; !ok || v == nil {
			return field, true
		}
	}
	return "", false
}

// Evaluate evaluates the filter against a torrent. A torrent that lacks a
// field the expression needs does not match, even when comparing against the
// missing value fails at runtime.
func (f *ExprFilter) Evaluate(torrent transmission.Torrent) (bool, error) {
	env := helpers()
	for field, value := range torrent.Plain() {
		env[field] = value
	}

	env["has"] = func(field string) bool {
		_, ok := torrent[field]
		return ok
	}
	env["fileCount"] = func() int {
		files, _ := torrent["files"].([]any)
		return len(files)
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		if _, missing := f.missingField(torrent); missing {
			return false, nil
		}
		return false, &Error{Stage: StageEvaluate, Expression: f.expr, Torrent: torrent.Name(), Err: err}
	}

	switch v := result.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, &Error{
			Stage:      StageEvaluate,
			Expression: f.expr,
			Torrent:    torrent.Name(),
			Err:        fmt.Errorf("%w: got %T", ErrNotBool, result),
		}
	}
}

// String returns the original expression
func (f *ExprFilter) String() string {
	return f.expr
}

// Apply returns the torrents the filter matches, preserving order. The first
// evaluation error aborts the scan.
func (f *ExprFilter) Apply(torrents []transmission.Torrent) ([]transmission.Torrent, error) {
	var matched []transmission.Torrent
	for _, t := range torrents {
		ok, err := f.Evaluate(t)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
