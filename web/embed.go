// Package web holds the survey and visuals pages and the assets they load.
package web

import "embed"

// TemplatesFS holds the page templates and their shared partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and page script served under /static/.
//
//go:embed static/*.css static/*.js
var StaticFS embed.FS
