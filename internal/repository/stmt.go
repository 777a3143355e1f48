package repository

import (
	"context"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// entConn runs builder-generated statements on the ent driver or on a
// transaction opened from it.
type entConn struct {
	dialect.ExecQuerier
	b *entsql.DialectBuilder
}

func (c entConn) exec(ctx context.Context, query string, args []any) error {
	if args == nil {
		args = []any{}
	}
	return c.Exec(ctx, query, args, nil)
}

func (c entConn) run(ctx context.Context, q entsql.Querier) error {
	query, args := q.Query()
	return c.exec(ctx, query, args)
}

// firstID returns the id in the first row of the selection, if any.
func (c entConn) firstID(ctx context.Context, sel *entsql.Selector) (uuid.UUID, bool, error) {
	query, args := sel.Query()
	if args == nil {
		args = []any{}
	}
	rows := &entsql.Rows{}
	if err := c.Query(ctx, query, args, rows); err != nil {
		return uuid.Nil, false, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return uuid.Nil, false, rows.Err()
	}
	var id uuid.UUID
	if err := rows.Scan(&id); err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}
