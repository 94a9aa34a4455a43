package inmemdb

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/calendar"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
)

type (
	DB struct {
		user     *userTable
		form     *formTable
		response *responseTable
		event    *eventTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	formTable struct {
		table map[string]*evaluation.Form
		mutex sync.RWMutex
	}

	responseTable struct {
		table map[string]*evaluation.Response
		mutex sync.RWMutex
	}

	eventTable struct {
		table map[string]*calendar.Event
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		form:     &formTable{table: make(map[string]*evaluation.Form)},
		response: &responseTable{table: make(map[string]*evaluation.Response)},
		event:    &eventTable{table: make(map[string]*calendar.Event)},
	}
}

// newID returns an id shaped like the ids of the mongo store.
func newID() string {
	return primitive.NewObjectID().Hex()
}

type transactor struct{}

// NewTransactor returns a Transactor running fn as is: the in-memory store has no transactions.
func NewTransactor() core.Transactor {
	return transactor{}
}

func (transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
