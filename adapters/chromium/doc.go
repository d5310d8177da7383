// Package pdfchromium drives a shared headless Chromium instance for pdflow.
//
// A Browser owns the allocator and hands out Surfaces, live tabs that satisfy
// export.Surface. The Capturer rasterizes a surface by serializing its
// document, running the clone transform in Go and screenshotting the result in
// a separate tab, so the live surface is never touched beyond its root width
// and scroll position.
package pdfchromium
