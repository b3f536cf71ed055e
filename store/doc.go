// Package store holds the open model handles of a process, keyed by the
// storage path of the container they were loaded from.
//
// A Store is created explicitly and handed to the components that use it;
// there is no package level instance. All operations are serialized.
package store
