package app

import (
	"context"
	"fmt"

	"treasury/internal/infrastructure/numerator"
	"treasury/internal/infrastructure/storage/postgres"
	"treasury/internal/infrastructure/storage/postgres/account_repo"
	"treasury/internal/infrastructure/storage/postgres/check_repo"
	"treasury/internal/infrastructure/storage/postgres/ledger_repo"
)

// PostgresRepositories backs every repository with one database pool.
// txm must manage transactions on the same pool.
func PostgresRepositories(pool *postgres.Pool, txm *postgres.TxManager) (Repositories, error) {
	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		return Repositories{}, fmt.Errorf("audit service: %w", err)
	}

	numbers := numerator.New(pool.Pool, func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	return Repositories{
		TxManager:  txm,
		Accounts:   account_repo.NewAccountRepo(txm),
		Ledger:     ledger_repo.NewLedgerRepo(txm),
		Checks:     check_repo.NewCheckRepo(txm),
		Checkbooks: check_repo.NewCheckbookRepo(txm),
		Numerator:  numbers,
		Events:     postgres.NewOutboxPublisher(txm),
		Audit:      audit,
	}, nil
}
