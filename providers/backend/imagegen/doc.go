// Package imagegen implements the image-generation adapter. Generation is a
// two-phase job: a submit call that walks the model fallback chain and, per
// model, a chain of progressively simpler payload variants, followed by a
// bounded polling loop that resolves the finished image into a data URL.
package imagegen
