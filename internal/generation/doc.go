// Package generation defines the boundary to external language-model
// services that write engagement content from a source post. The platform
// adapters (Gemini) implement Generator; the engagement flows depend only on
// this package.
package generation
