package service

import (
	"context"

	"github.com/mmeshcher/coffeeshop/internal/model"
)

const recentOrdersLimit = 5

// Stats возвращает сводку для панели администратора.
func (s *Service) Stats(ctx context.Context, caller model.Identity) (*model.Stats, error) {
	if err := requirePrivileged(caller); err != nil {
		return nil, err
	}
	return s.repo.GetStats(ctx, recentOrdersLimit)
}
