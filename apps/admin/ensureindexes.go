package main

import (
	"context"
	"fmt"
	"time"
)

var indexesTimeout = time.Minute

func (cli *commandLine) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), indexesTimeout)
	defer cancel()
	if err := cli.db.EnsureIndexes(ctx); err != nil {
		return err
	}
	fmt.Println("indexes are up to date")
	return nil
}
