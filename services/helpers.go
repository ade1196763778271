package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cyclocross/stevenscup-app/repositories"
)

// TxBeginner — минимальный интерфейс *sql.DB, нужный сервисам для
// открытия транзакций.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// runInTx выполняет fn внутри транзакции. Если db == nil (in-memory
// репозитории в тестах), fn выполняется без транзакции с nil-executor.
func runInTx(ctx context.Context, db TxBeginner, fn func(exec repositories.SQLExecutor) error) error {
	if db == nil {
		return fn(nil)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapNotFound подменяет sentinel-ошибку репозитория сервисной, остальные
// ошибки пропускает как есть.
func mapNotFound(err, repoNotFound, serviceNotFound error) error {
	if errors.Is(err, repoNotFound) {
		return serviceNotFound
	}
	return err
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
