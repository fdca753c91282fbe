package adapter

import (
	"fmt"
	"strconv"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	m "github.com/tempo-ml/tempo/internal/model"
)

// PyImport records one name binding created by an import statement.
// `import torch.nn` binds "torch" -> "torch"; `import numpy as np` binds
// "np" -> "numpy"; `from torch.cuda import amp as a` binds
// "a" -> "torch.cuda.amp".
type PyImport struct {
	Line    int
	Binding string
	Target  string
}

// PyKeyword is a keyword argument whose value is a string or number
// literal. Non-literal values are dropped.
type PyKeyword struct {
	Name  string
	Value string
}

// PyCall is a call whose callee is a plain dotted name chain. Chain holds
// the segments as written, outermost base first ("torch", "cuda", "amp",
// "autocast"). Calls through subscripts, call results or other dynamic
// expressions are not representable and are omitted — the detector must
// never fabricate a match it cannot resolve.
type PyCall struct {
	Line     int
	Chain    []string
	Keywords []PyKeyword
}

// PyLoop is a for/while statement together with every dotted-name call in
// its body, used to recognize training-loop shapes.
type PyLoop struct {
	Line  int
	Calls []PyCall
}

// PyModule is the parse result of one Python file, reduced to the constructs
// the pattern rules evaluate.
type PyModule struct {
	Imports []PyImport
	Calls   []PyCall
	Loops   []PyLoop
}

// PythonFileAdapter wraps Python parsing so the domain layer never touches
// the parser package directly.
type PythonFileAdapter interface {
	// Parse builds a PyModule from source bytes. A syntax error returns a
	// non-nil error and no module.
	Parse(path m.Path, src []byte) (*PyModule, error)
}

// GpythonFileAdapter backs PythonFileAdapter with the gpython parser.
type GpythonFileAdapter struct{}

// NewGpythonFileAdapter constructs a GpythonFileAdapter.
func NewGpythonFileAdapter() *GpythonFileAdapter {
	return &GpythonFileAdapter{}
}

// Parse parses src and extracts imports, dotted calls and loop bodies.
func (a *GpythonFileAdapter) Parse(path m.Path, src []byte) (*PyModule, error) {
	tree, err := parser.ParseString(string(src), py.ExecMode)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	mod := &PyModule{}

	ast.Walk(tree, func(node ast.Ast) bool {
		switch n := node.(type) {
		case *ast.Import:
			for _, alias := range n.Names {
				mod.Imports = append(mod.Imports, importBinding(n.GetLineno(), alias, ""))
			}
		case *ast.ImportFrom:
			if n.Level > 0 || n.Module == "" {
				// Relative imports cannot be resolved within one file.
				return true
			}

			for _, alias := range n.Names {
				if string(alias.Name) == "*" {
					continue
				}

				mod.Imports = append(mod.Imports, importBinding(n.GetLineno(), alias, string(n.Module)))
			}
		case *ast.Call:
			if call, ok := dottedCall(n); ok {
				mod.Calls = append(mod.Calls, call)
			}
		case *ast.For:
			mod.Loops = append(mod.Loops, PyLoop{Line: n.GetLineno(), Calls: bodyCalls(n.Body)})
		case *ast.While:
			mod.Loops = append(mod.Loops, PyLoop{Line: n.GetLineno(), Calls: bodyCalls(n.Body)})
		}

		return true
	})

	return mod, nil
}

// importBinding maps an import alias to the dotted path the bound name
// refers to, following Python binding semantics.
func importBinding(line int, alias *ast.Alias, fromModule string) PyImport {
	name := string(alias.Name)
	asName := string(alias.AsName)

	if fromModule != "" {
		binding := name
		if asName != "" {
			binding = asName
		}

		return PyImport{Line: line, Binding: binding, Target: fromModule + "." + name}
	}

	if asName != "" {
		return PyImport{Line: line, Binding: asName, Target: name}
	}

	// `import a.b.c` binds only the top-level package name.
	top := name
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			top = name[:i]
			break
		}
	}

	return PyImport{Line: line, Binding: top, Target: top}
}

// dottedCall reduces a call to its name chain, dropping anything dynamic.
func dottedCall(call *ast.Call) (PyCall, bool) {
	var chain []string

	expr := call.Func
	for {
		switch e := expr.(type) {
		case *ast.Attribute:
			chain = append([]string{string(e.Attr)}, chain...)
			expr = e.Value
		case *ast.Name:
			chain = append([]string{string(e.Id)}, chain...)

			return PyCall{
				Line:     call.GetLineno(),
				Chain:    chain,
				Keywords: literalKeywords(call.Keywords),
			}, true
		default:
			return PyCall{}, false
		}
	}
}

// literalKeywords keeps keyword arguments whose values are string or number
// literals, rendered as their literal text.
func literalKeywords(keywords []*ast.Keyword) []PyKeyword {
	var out []PyKeyword

	for _, kw := range keywords {
		if kw.Arg == "" {
			continue // **kwargs expansion
		}

		value, ok := literalText(kw.Value)
		if !ok {
			continue
		}

		out = append(out, PyKeyword{Name: string(kw.Arg), Value: value})
	}

	return out
}

func literalText(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.Str:
		return string(e.S), true
	case *ast.Num:
		switch n := e.N.(type) {
		case py.Int:
			return strconv.FormatInt(int64(n), 10), true
		case py.Float:
			return strconv.FormatFloat(float64(n), 'g', -1, 64), true
		}
	}

	return "", false
}

// bodyCalls collects every dotted call in a statement list, recursively.
func bodyCalls(body []ast.Stmt) []PyCall {
	var calls []PyCall

	for _, stmt := range body {
		ast.Walk(stmt, func(node ast.Ast) bool {
			if call, ok := node.(*ast.Call); ok {
				if dotted, ok := dottedCall(call); ok {
					calls = append(calls, dotted)
				}
			}

			return true
		})
	}

	return calls
}
