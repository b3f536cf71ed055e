// Package node adapts the ingest pipeline to a dataflow host.
//
// An Adapter owns one input slot (a source path), one output slot (the
// identifier manifest of the last successful ingest) and a status line. The
// host sets the input and calls Calculate; the outcome arrives
// asynchronously and is published through the output and status listeners.
package node
