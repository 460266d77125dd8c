// Package static holds the public site and admin panel served at the root.
package static

import "embed"

//go:embed index.html admin.html css js
var Files embed.FS
