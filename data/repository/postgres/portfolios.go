package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dharness/stock-tracker/data/repository"
	"github.com/dharness/stock-tracker/internal/converter/dbConverter"
	"github.com/dharness/stock-tracker/internal/model"
	"github.com/dharness/stock-tracker/internal/model/dbModel"
	"github.com/dharness/stock-tracker/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreatePortfolio(ctx context.Context, groupName, portfolioName string) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO portfolios(group_name, name) VALUES($1, $2) RETURNING portfolio_id`

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, groupName, portfolioName).Scan(&portfolioID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return 0, repository.ErrAlreadyExists
			}
		}
		return 0, err
	}

	return portfolioID, nil
}

// LoadPortfolioGroup returns every portfolio of the group with its holdings.
// A portfolio without holdings rows comes back with an empty definition.
func (r *Postgres) LoadPortfolioGroup(ctx context.Context, groupName string) (group model.PortfolioGroup, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT p.name, h.ticker, h.amount
		FROM portfolios p
		LEFT JOIN holdings h ON h.portfolio_id = p.portfolio_id
		WHERE p.group_name = $1
		ORDER BY p.name, h.ticker
		`

	slog.Debug("LoadPortfolioGroup start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("LoadPortfolioGroup failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("LoadPortfolioGroup completed", slog.String("rqID", rqID))
		}
	}()

	rows := []dbModel.HoldingRow{}
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query, groupName)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}

	return dbConverter.ConvertHoldingRows(rows), nil
}

func (r *Postgres) UpsertHolding(ctx context.Context, groupName, portfolioName, ticker string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO holdings(portfolio_id, ticker, amount)
		SELECT portfolio_id, $3, $4 FROM portfolios WHERE group_name = $1 AND name = $2
		ON CONFLICT (portfolio_id, ticker) DO UPDATE SET amount = EXCLUDED.amount
		`

	slog.Debug("UpsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, groupName, portfolioName, ticker, amount)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
