// Package page holds the server-rendered shells. The pages are thin: all
// task and points state comes from /api/* after load, so each component is
// a static document plus the script that drives it.
package page

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func static(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}

// Home is the authenticated app shell.
func Home() templ.Component {
	return static(homeHTML)
}

// Login is the combined sign-in / sign-up page.
func Login() templ.Component {
	return static(loginHTML)
}

// NotFound renders the catch-all 404 page.
func NotFound() templ.Component {
	return static(notFoundHTML)
}
