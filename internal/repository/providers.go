package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

type ProviderRepository interface {
	GetByTaxID(ctx context.Context, tenantID, taxID string) (*entity.Provider, error)
	List(ctx context.Context, tenantID string) ([]*entity.Provider, error)
}

type providerRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProviderRepository(db *DB, logger *slog.Logger) ProviderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &providerRepo{db: db.SQL, logger: logger}
}

const providerColumns = `id, tenant_id, tax_id, legal_name, address, state, created_at`

func scanProvider(row rowScanner) (*entity.Provider, error) {
	var (
		p                    entity.Provider
		taxID, name, address sql.NullString
	)
	if err := row.Scan(&p.ID, &p.TenantID, &taxID, &name, &address, &p.State, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.TaxID, p.LegalName, p.Address = strPtr(taxID), strPtr(name), strPtr(address)
	return &p, nil
}

func (r *providerRepo) GetByTaxID(ctx context.Context, tenantID, taxID string) (*entity.Provider, error) {
	p, err := scanProvider(r.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE tenant_id = $1 AND tax_id = $2`, tenantID, taxID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("provider %s", taxID)
	}
	if err != nil {
		r.logger.Error("failed to get provider", "tenant_id", tenantID, "tax_id", taxID, "error", err)
		return nil, common.Database("get provider", err)
	}
	return p, nil
}

func (r *providerRepo) List(ctx context.Context, tenantID string) ([]*entity.Provider, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE tenant_id = $1 ORDER BY legal_name, tax_id, id`, tenantID)
	if err != nil {
		r.logger.Error("failed to list providers", "tenant_id", tenantID, "error", err)
		return nil, common.Database("list providers", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, common.Database("scan provider", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Database("list providers", err)
	}
	return out, nil
}

// lookupProviderID finds a provider by tax id, or by legal name when there is no tax id.
func lookupProviderID(ctx context.Context, c entConn, tenantID string, f entity.ProviderFields) (uuid.UUID, bool, error) {
	sel := c.b.Select("id").From(c.b.Table("providers"))
	switch {
	case f.TaxID != nil:
		sel.Where(entsql.And(entsql.EQ("tenant_id", tenantID), entsql.EQ("tax_id", *f.TaxID)))
	case f.LegalName != nil:
		sel.Where(entsql.And(entsql.EQ("tenant_id", tenantID), entsql.EQ("legal_name", *f.LegalName))).
			OrderBy("created_at", "id").
			Limit(1)
	default:
		return uuid.Nil, false, nil
	}
	return c.firstID(ctx, sel)
}

// insertProviderOrLookup inserts inside a savepoint so a unique violation from a
// concurrent insert can be rolled back and resolved as a lookup without
// aborting the surrounding transaction.
func insertProviderOrLookup(ctx context.Context, c entConn, logger *slog.Logger, tenantID string, f entity.ProviderFields) (uuid.UUID, error) {
	if err := c.exec(ctx, "SAVEPOINT provider_upsert", nil); err != nil {
		return uuid.Nil, fmt.Errorf("savepoint: %w", err)
	}

	id := uuid.New()
	err := c.run(ctx, c.b.Insert("providers").
		Columns("id", "tenant_id", "tax_id", "legal_name", "address", "state", "created_at").
		Values(id, tenantID, nullString(f.TaxID), nullString(f.LegalName), nullString(f.Address),
			string(constants.ProviderStateActive), time.Now().UTC()))
	if err == nil {
		if err := c.exec(ctx, "RELEASE SAVEPOINT provider_upsert", nil); err != nil {
			return uuid.Nil, fmt.Errorf("release savepoint: %w", err)
		}
		logger.Info("materialize.provider.created", "tenant_id", tenantID, "provider_id", id)
		return id, nil
	}
	if !isUniqueViolation(err) {
		return uuid.Nil, err
	}

	conflict := common.NewAppError(common.CodeConflict, "provider created concurrently", errors.Join(common.ErrConflict, err))
	logger.Warn("materialize.provider.conflict", "tenant_id", tenantID, "error", conflict)
	if rbErr := c.exec(ctx, "ROLLBACK TO SAVEPOINT provider_upsert", nil); rbErr != nil {
		return uuid.Nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
	}
	existing, found, lerr := lookupProviderID(ctx, c, tenantID, f)
	if lerr != nil {
		return uuid.Nil, lerr
	}
	if !found {
		return uuid.Nil, conflict
	}
	return existing, nil
}
