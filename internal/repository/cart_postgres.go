package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresCartRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCartRepository) Load(ctx context.Context, key string) (*domain.CartState, error) {
	query := `SELECT payload FROM cart_states WHERE session_key = $1`
	var data []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		r.log.Errorf("Failed to load cart for key %s: %v", key, err)
		return nil, fmt.Errorf("could not load cart: %w", err)
	}
	return DecodeCart(data)
}

func (r *postgresCartRepository) Save(ctx context.Context, key string, state domain.CartState) error {
	data, err := EncodeCart(state)
	if err != nil {
		return err
	}

	query := `INSERT INTO cart_states (session_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, key, data); err != nil {
		r.log.Errorf("Failed to save cart for key %s: %v", key, err)
		return fmt.Errorf("could not save cart: %w", err)
	}
	r.log.Debugf("Cart saved for key %s (%d lines)", key, len(state.Lines))
	return nil
}

func (r *postgresCartRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM cart_states WHERE session_key = $1`
	result, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		r.log.Errorf("Failed to delete cart for key %s: %v", key, err)
		return fmt.Errorf("could not delete cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Failed to get rows affected after deleting cart %s: %v", key, err)
		return fmt.Errorf("could not confirm cart deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Debugf("No stored cart to delete for key %s", key)
	}
	return nil
}
