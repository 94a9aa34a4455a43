package core

import "context"

// Transactor runs fn in a store transaction when the store supports one.
// Repositories called with the ctx passed to fn take part in the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Direction returns 1 for ascending and -1 for descending orderings.
func (ord DBOrdering) Direction() int {
	if ord.Ascending {
		return 1
	}
	return -1
}
