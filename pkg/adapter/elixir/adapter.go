// Package elixir binds Elixir to MetaAST. The native model is the quoted
// form Code.string_to_quoted returns; it can be produced in process from the
// tree-sitter grammar or by an elixir subprocess.
package elixir

import (
	"github.com/Sumatoshi-tech/metaast/pkg/adapter"
	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// Adapter converts between quoted forms and MetaAST.
type Adapter struct{}

// Language returns meta.LanguageElixir.
func (Adapter) Language() meta.Language {
	return meta.LanguageElixir
}

// Bind pairs the adapter with frontend.
func Bind(frontend adapter.Frontend[Term]) adapter.Binding {
	return adapter.Bind[Term](Adapter{}, frontend)
}

var (
	_ adapter.Adapter[Term]  = Adapter{}
	_ adapter.Frontend[Term] = (*SitterFrontend)(nil)
	_ adapter.Frontend[Term] = (*ToolFrontend)(nil)
)
