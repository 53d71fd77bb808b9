// Package web embeds the console page. The page is a thin drawing surface:
// it executes layout commands received over the websocket and reports user
// events back; all view state lives server-side.
package web

import _ "embed"

//go:embed index.html
var indexHTML []byte

// Index returns the console page.
func Index() []byte {
	return indexHTML
}
