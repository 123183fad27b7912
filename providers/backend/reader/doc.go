// Package reader implements the content-extraction adapter. It finds the
// first URL in the prompt, fetches it through a reader proxy, and renders
// the body as markdown, a transcript, or indented JSON depending on the
// requested mode.
package reader
