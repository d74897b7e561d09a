package table

// Comparator orders rows for the sorted projection. It returns a negative
// number when a sorts before b, zero when they are equal and a positive
// number otherwise.
type Comparator func(a, b Row) int

// ByColumn orders rows by the value of col, nulls first.
func ByColumn(col Column, desc bool) Comparator {
	return func(a, b Row) int {
		av, _ := a.Get(col)
		bv, _ := b.Get(col)
		c := av.Compare(bv)
		if desc {
			return -c
		}
		return c
	}
}

// Then breaks ties of c with next.
func (c Comparator) Then(next Comparator) Comparator {
	return func(a, b Row) int {
		if r := c(a, b); r != 0 {
			return r
		}
		return next(a, b)
	}
}
