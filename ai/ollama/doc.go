// Package ollama provides AI service implementations backed by the native
// Ollama API.
//
// Both services are built on langchaingo's Ollama client. The reasoner
// requests JSON-formatted output at temperature 0.
package ollama
