// Package mocks holds testify mocks for the databases package. Variadic
// options are unrolled into the call arguments, so a call without options
// matches On(method, ctx, filter).
package mocks

func unroll(args []interface{}, opts ...interface{}) []interface{} {
	return append(args, opts...)
}
