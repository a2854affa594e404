package warehouse

import "context"

// Session is an authenticated warehouse connection. Sessions are not
// safe for concurrent use; callers must serialize access themselves.
type Session interface {
	Execute(ctx context.Context, sqlText string) error
	Query(ctx context.Context, sqlText string) (Table, error)
	BulkWrite(ctx context.Context, table string, data Table) (int64, error)
	Close() error
}
