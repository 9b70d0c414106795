package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/lib/pq"

	"pampermomma/internal/registry/models"
	"pampermomma/pkg/domain"
	"pampermomma/pkg/money"
)

//go:embed schema.sql
var schema string

// Migrate applies the registry schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

// PostgresStore persists registries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, registry *models.Registry) error {
	if registry == nil {
		return fmt.Errorf("registry is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create registry: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registries (
			id, owner_id, name, shareable_id, is_first_time, babies_count,
			arrival_date, welcome_msg, thank_you_msg, payouts_enabled,
			payout_account, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		registry.ID.String(), registry.OwnerID.String(), registry.Name,
		registry.ShareableID, registry.IsFirstTime, registry.BabiesCount,
		nullTime(registry.ArrivalDate), registry.WelcomeMsg, registry.ThankYouMsg,
		registry.PayoutsEnabled, registry.PayoutAccount,
		registry.CreatedAt, registry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registry: %w", err)
	}

	for i := range registry.Services {
		svc := &registry.Services[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO services (
				id, registry_id, name, description, hours, cost_per_hour,
				is_active, total_withdrawn, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			svc.ID.String(), registry.ID.String(), svc.Name, svc.Description,
			svc.Hours, svc.CostPerHour.String(), svc.IsActive,
			svc.TotalWithdrawn.String(), svc.CreatedAt, svc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create registry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id domain.RegistryID) (*models.Registry, error) {
	return s.loadRegistry(ctx, `WHERE r.id = $1`, id.String())
}

func (s *PostgresStore) GetByShareableID(ctx context.Context, shareableID string) (*models.Registry, error) {
	return s.loadRegistry(ctx, `WHERE r.shareable_id = $1`, shareableID)
}

func (s *PostgresStore) GetByServiceID(ctx context.Context, serviceID domain.ServiceID) (*models.Registry, error) {
	return s.loadRegistry(ctx,
		`WHERE r.id = (SELECT registry_id FROM services WHERE id = $1)`,
		serviceID.String())
}

func (s *PostgresStore) loadRegistry(ctx context.Context, where string, arg any) (*models.Registry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.owner_id, r.name, r.shareable_id, r.is_first_time,
		       r.babies_count, r.arrival_date, r.welcome_msg, r.thank_you_msg,
		       r.payouts_enabled, r.payout_account, r.created_at, r.updated_at
		FROM registries r `+where, arg)

	reg, err := scanRegistry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load registry: %w", err)
	}

	if err := s.loadServices(ctx, reg); err != nil {
		return nil, err
	}
	if err := s.loadWithdrawals(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *PostgresStore) loadServices(ctx context.Context, reg *models.Registry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registry_id, name, description, hours, cost_per_hour,
		       is_active, total_withdrawn, created_at, updated_at
		FROM services WHERE registry_id = $1 ORDER BY created_at`,
		reg.ID.String())
	if err != nil {
		return fmt.Errorf("load services: %w", err)
	}
	defer rows.Close()

	serviceIDs := []string{}
	index := map[domain.ServiceID]int{}
	for rows.Next() {
		var (
			svc                         models.Service
			id, regID, cost, withdrawn string
		)
		err := rows.Scan(&id, &regID, &svc.Name, &svc.Description, &svc.Hours,
			&cost, &svc.IsActive, &withdrawn, &svc.CreatedAt, &svc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("scan service: %w", err)
		}
		if svc.ID, err = domain.ParseServiceID(id); err != nil {
			return fmt.Errorf("scan service id: %w", err)
		}
		if svc.RegistryID, err = domain.ParseRegistryID(regID); err != nil {
			return fmt.Errorf("scan service registry id: %w", err)
		}
		if svc.CostPerHour, err = money.Parse(cost); err != nil {
			return fmt.Errorf("scan cost_per_hour: %w", err)
		}
		if svc.TotalWithdrawn, err = money.Parse(withdrawn); err != nil {
			return fmt.Errorf("scan total_withdrawn: %w", err)
		}
		index[svc.ID] = len(reg.Services)
		reg.Services = append(reg.Services, svc)
		serviceIDs = append(serviceIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate services: %w", err)
	}
	if len(serviceIDs) == 0 {
		return nil
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, amount, contributor_name, contributor_email,
		       status, fee, available_on, processor_intent, created_at, updated_at
		FROM contributions WHERE service_id = ANY($1::uuid[]) ORDER BY created_at`,
		pq.Array(serviceIDs))
	if err != nil {
		return fmt.Errorf("load contributions: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		contribution, err := scanContribution(crows)
		if err != nil {
			return err
		}
		if i, ok := index[contribution.ServiceID]; ok {
			reg.Services[i].Contributions = append(reg.Services[i].Contributions, *contribution)
		}
	}
	if err := crows.Err(); err != nil {
		return fmt.Errorf("iterate contributions: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadWithdrawals(ctx context.Context, reg *models.Registry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, registry_id, amount, status, transfer_id, created_at
		FROM withdrawals WHERE registry_id = $1 ORDER BY created_at`,
		reg.ID.String())
	if err != nil {
		return fmt.Errorf("load withdrawals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w                         models.Withdrawal
			id, regID, amount, status string
		)
		err := rows.Scan(&id, &regID, &amount, &status, &w.TransferID, &w.CreatedAt)
		if err != nil {
			return fmt.Errorf("scan withdrawal: %w", err)
		}
		if w.ID, err = domain.ParseWithdrawalID(id); err != nil {
			return fmt.Errorf("scan withdrawal id: %w", err)
		}
		if w.RegistryID, err = domain.ParseRegistryID(regID); err != nil {
			return fmt.Errorf("scan withdrawal registry id: %w", err)
		}
		if w.Amount, err = money.Parse(amount); err != nil {
			return fmt.Errorf("scan withdrawal amount: %w", err)
		}
		w.Status = models.WithdrawalStatus(status)
		reg.Withdrawals = append(reg.Withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate withdrawals: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordContribution(ctx context.Context, contribution *models.Contribution) error {
	if contribution == nil {
		return fmt.Errorf("contribution is required")
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO contributions (
			id, service_id, amount, contributor_name, contributor_email,
			status, fee, available_on, processor_intent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (processor_intent) DO NOTHING`,
		contribution.ID.String(), contribution.ServiceID.String(),
		contribution.Amount.String(), contribution.ContributorName,
		contribution.ContributorEmail, string(contribution.Status),
		nullAmount(contribution.Fee), nullTime(contribution.AvailableOn),
		contribution.ProcessorIntent, contribution.CreatedAt, contribution.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record contribution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record contribution result: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateIntent
	}
	return nil
}

func (s *PostgresStore) FindContributionByIntent(ctx context.Context, intentID string) (*models.Contribution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, amount, contributor_name, contributor_email,
		       status, fee, available_on, processor_intent, created_at, updated_at
		FROM contributions WHERE processor_intent = $1`, intentID)

	contribution, err := scanContribution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contribution, nil
}

func (s *PostgresStore) SetContributionFee(ctx context.Context, id domain.ContributionID, fee money.Amount, availableOn *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contributions SET fee = $2, available_on = $3, updated_at = NOW()
		WHERE id = $1`,
		id.String(), fee.String(), nullTime(availableOn))
	if err != nil {
		return fmt.Errorf("set contribution fee: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStore) AddWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal == nil {
		return fmt.Errorf("withdrawal is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO withdrawals (id, registry_id, amount, status, transfer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		withdrawal.ID.String(), withdrawal.RegistryID.String(),
		withdrawal.Amount.String(), string(withdrawal.Status),
		withdrawal.TransferID, withdrawal.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add withdrawal: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetWithdrawalStatus(ctx context.Context, id domain.WithdrawalID, status models.WithdrawalStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE withdrawals SET status = $2 WHERE id = $1`,
		id.String(), string(status))
	if err != nil {
		return fmt.Errorf("set withdrawal status: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistry(row rowScanner) (*models.Registry, error) {
	var (
		reg         models.Registry
		id, ownerID string
		arrival     sql.NullTime
	)
	err := row.Scan(&id, &ownerID, &reg.Name, &reg.ShareableID, &reg.IsFirstTime,
		&reg.BabiesCount, &arrival, &reg.WelcomeMsg, &reg.ThankYouMsg,
		&reg.PayoutsEnabled, &reg.PayoutAccount, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reg.ID, err = domain.ParseRegistryID(id); err != nil {
		return nil, fmt.Errorf("scan registry id: %w", err)
	}
	if reg.OwnerID, err = domain.ParseUserID(ownerID); err != nil {
		return nil, fmt.Errorf("scan registry owner id: %w", err)
	}
	if arrival.Valid {
		reg.ArrivalDate = &arrival.Time
	}
	return &reg, nil
}

func scanContribution(row rowScanner) (*models.Contribution, error) {
	var (
		c                      models.Contribution
		id, svcID, amt, status string
		fee                    sql.NullString
		availableOn            sql.NullTime
	)
	err := row.Scan(&id, &svcID, &amt, &c.ContributorName, &c.ContributorEmail,
		&status, &fee, &availableOn, &c.ProcessorIntent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = domain.ParseContributionID(id); err != nil {
		return nil, fmt.Errorf("scan contribution id: %w", err)
	}
	if c.ServiceID, err = domain.ParseServiceID(svcID); err != nil {
		return nil, fmt.Errorf("scan contribution service id: %w", err)
	}
	if c.Amount, err = money.Parse(amt); err != nil {
		return nil, fmt.Errorf("scan contribution amount: %w", err)
	}
	c.Status = models.ContributionStatus(status)
	if fee.Valid {
		feeAmount, err := money.Parse(fee.String)
		if err != nil {
			return nil, fmt.Errorf("scan contribution fee: %w", err)
		}
		c.Fee = money.Some(feeAmount)
	}
	if availableOn.Valid {
		c.AvailableOn = &availableOn.Time
	}
	return &c, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullAmount(value money.Optional) sql.NullString {
	if !value.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Amount.String(), Valid: true}
}
