package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dharness/stock-tracker/config"
	"github.com/jmoiron/sqlx"
)

// Querier holds the methods shared by sqlx.DB and sqlx.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

// WithinTransaction runs function within transaction
//
// The transaction commits when function were finished without error
func (p *Postgres) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	tx, err := p.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("failed to rollback transaction", slog.String("err", rbErr.Error()))
			}
		}
	}()

	err = tFunc(p.injectTx(ctx, tx))
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (p *Postgres) injectTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func (p *Postgres) extractTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// txOrDb returns the transaction from the context when one is present,
// otherwise the plain connection, so repository methods work either way.
func (p *Postgres) txOrDb(ctx context.Context) Querier {
	if tx := p.extractTx(ctx); tx != nil {
		return tx
	}
	return p.db
}
