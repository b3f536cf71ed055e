// Package schema maps IFC schema identifiers to schema variants and supplies
// the variant-specific copy strategy used when normalizing a model.
//
// Two variants are supported: IFC2X3 (legacy) and IFC4 (current). Both share
// one copy algorithm; they differ only in which entity classes count as
// products, which is kept in a single class table.
package schema
