// Package model provides access to IFC model containers.
//
// A Model is backed by an in-memory entity repository and loaded from, or
// saved to, a STEP physical file. Changes are staged in a Transaction and
// become visible to readers on Commit. InsertCopy copies an entity together
// with everything it references from another model, keeping entity labels and
// passing every attribute through a PropertyTransform on the way.
//
// A Model is safe for concurrent readers. Only one transaction may be active
// per model at a time.
package model
