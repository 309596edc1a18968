// Package python binds Python to MetaAST. The native model mirrors the node
// shapes of CPython's ast module; it can be produced in process from the
// tree-sitter grammar or by a python3 subprocess running ast.parse.
package python

import (
	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Adapter converts between the Python native model and MetaAST.
type Adapter struct{}

// Language returns meta.LanguagePython.
func (Adapter) Language() meta.Language {
	return meta.LanguagePython
}

// Bind pairs the adapter with frontend.
func Bind(frontend adapter.Frontend[*Node]) adapter.Binding {
	return adapter.Bind[*Node](Adapter{}, frontend)
}

var (
	_ adapter.Adapter[*Node]  = Adapter{}
	_ adapter.Frontend[*Node] = (*SitterFrontend)(nil)
	_ adapter.Frontend[*Node] = (*ToolFrontend)(nil)
)
