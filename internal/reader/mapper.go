package reader

// Mapper turns a raw row into a record. Implementations must be pure: no I/O
// and no state carried between calls.
type Mapper[T any] interface {
	Map(row RawRow) (T, error)
}

type MapperFunc[T any] func(row RawRow) (T, error)

func (f MapperFunc[T]) Map(row RawRow) (T, error) {
	return f(row)
}
