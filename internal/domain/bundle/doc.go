// Package bundle moves apps in and out of the feed as files.
//
// Exports come in two shapes: a single self-contained HTML page (the same
// sandbox document the preview uses) and a zip with index.html, style.css,
// app.js and manifest.json. Import accepts either shape back, plus any plain
// HTML page with inline styles and scripts.
package bundle
