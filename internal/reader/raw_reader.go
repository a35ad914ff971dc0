package reader

// RawRow is one positional tuple of column values as returned by a query
// source. Values keep the driver's native Go types.
type RawRow []any
