package cart

import (
	"context"
	"errors"

	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
)

// Rehydrate loads the persisted cart for key. It never fails: a missing,
// unreadable or corrupt record yields an empty cart, and malformed lines are
// corrected by Sanitize. The returned state is always closed and at version 0.
func Rehydrate(ctx context.Context, repo domain.CartRepository, key string, logger *logrus.Logger) (domain.CartState, int) {
	if repo == nil {
		return domain.CartState{}, 0
	}

	stored, err := repo.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			logger.Debugf("Cart Rehydrate: no stored cart for key %s", key)
		} else {
			logger.Warnf("Cart Rehydrate: failed to load cart for key %s, starting empty: %v", key, err)
		}
		return domain.CartState{}, 0
	}
	if stored == nil {
		return domain.CartState{}, 0
	}

	lines, corrected := Sanitize(stored.Lines)
	if corrected > 0 {
		logger.Warnf("Cart Rehydrate: corrected %d malformed entries for key %s", corrected, key)
	}
	logger.Infof("Cart Rehydrate: restored %d lines for key %s", len(lines), key)
	return domain.CartState{Lines: lines}, corrected
}

// Sanitize enforces the cart invariants on untrusted lines: entries with a
// non-positive ID, a non-positive quantity or a negative price are dropped,
// and duplicate IDs are merged into their first occurrence by summing
// quantities. It reports how many entries were dropped or merged.
func Sanitize(lines []domain.CartLine) ([]domain.CartLine, int) {
	out := make([]domain.CartLine, 0, len(lines))
	index := make(map[int]int, len(lines))
	corrected := 0

	for _, l := range lines {
		if l.ID <= 0 || l.Quantity <= 0 || l.Price.IsNegative() {
			corrected++
			continue
		}
		if i, ok := index[l.ID]; ok {
			out[i].Quantity += l.Quantity
			corrected++
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out, corrected
}
