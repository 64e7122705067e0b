// Package expr parses and evaluates the arithmetic formulas that bind grid
// attributes to timeline variables.
//
// A formula is an infix expression over numbers, variable names, 1-D array
// indexing and a small set of functions:
//
//	i + 1
//	arr[j] // 2
//	max(0, n - k) * 2
//
// # Operators
//
// From lowest to highest precedence: + and -; *, /, // and %; unary + and -;
// ^ (alias **). Power is right-associative. / is true division, // is floored
// division and % is floored modulo, so -7 % 3 is 2.
//
// # Functions
//
// abs, floor, ceil and round take one argument; min and max take two or more.
// round rounds half away from zero. Unknown functions and wrong argument counts
// are parse errors.
//
// # Evaluation
//
// [Expr.Eval] reads variables from a [variable.Snapshot]. Plain names must be
// int or float scalars; name[i] requires a 1-D numeric array and floors i.
// Every failure is an [*Error] carrying a [Kind]; the result is never NaN or
// infinite.
//
// Parsed expressions are immutable and safe for concurrent use. [Cache] and the
// package-level [Evaluate] memoize parsing by source text.
package expr
