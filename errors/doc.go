// Package errors provides structured error types for heapbind.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The kinds callers are expected to branch on:
//
//	class_not_found         layout mismatch, disable the dependent feature
//	field_not_found         layout mismatch, disable the dependent feature
//	null_instance           dead or absent object, skip the operation
//	index_out_of_range      array bounds violation, skip the operation
//	unsupported_field_kind  accessor does not match the field, programmer error
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAccess, errors.KindOverflow).
//		Path("Unit", "hp").
//		Class("Game.Unit").
//		Detail("value 300 overflows u8").
//		Build()
//
// Match a kind regardless of phase with the sentinels:
//
//	if errors.Is(err, heaperrors.ErrNullInstance) { ... }
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
