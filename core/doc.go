// Package core provides the types shared by every DecentDB layer.
//
// The package defines the tagged value model (Null, Int64, Bool, Float64,
// Text, Blob, Decimal), the flat ValueView record used to move values across
// a foreign boundary, schema types (Table, Column, Index) and the coded
// error taxonomy.
//
// # Values
//
// Values are immutable and exactly one variant is active:
//
//	v := core.NewDecimal(12345, 2) // 123.45
//	d, err := core.AsDecimal(v)
//
// # Column Types
//
// Supported column types:
//   - IntType: 64-bit signed integers (INT, INTEGER, BIGINT)
//   - FloatType: 64-bit floats (REAL, FLOAT, DOUBLE)
//   - BoolType: booleans
//   - TextType: UTF-8 text (TEXT, VARCHAR)
//   - BlobType: raw bytes (BLOB, BYTEA)
//   - DecimalType: exact decimals (DECIMAL(p,s), NUMERIC(p,s))
//
// # Errors
//
// Every error crossing the public API is a *core.Error carrying a Code:
//
//	if errors.Is(err, core.ErrSyntax) {
//	    ...
//	}
package core
