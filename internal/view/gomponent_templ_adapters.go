package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"maragu.dev/gomponents"
)

// gomponentComponent lets a gomponents.Node render inside a templ layout.
type gomponentComponent struct {
	node gomponents.Node
}

func (a gomponentComponent) Render(ctx context.Context, w io.Writer) error {
	return a.node.Render(w)
}

// FromNode wraps a gomponents.Node as a templ.Component.
func FromNode(node gomponents.Node) templ.Component {
	return gomponentComponent{node: node}
}
