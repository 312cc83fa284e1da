package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

// Update garante a existência da linha, trava-a com SELECT ... FOR UPDATE
// (no Postgres) e grava o resultado de fn na mesma transação.
func (s *Storage) Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error) {
	var out domain.IPActivityRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := activityModelFrom(domain.NewIPActivityRecord(ip, now))
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ip"}},
			DoNothing: true,
		}).Create(&seed).Error
		if err != nil {
			return err
		}

		query := tx
		if s.rowLocks {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row ipActivityModel
		if err := query.Where("ip = ?", ip).Take(&row).Error; err != nil {
			return err
		}

		rec := row.toDomain()
		if err := fn(&rec); err != nil {
			return err
		}

		updated := activityModelFrom(rec)
		updated.ID = row.ID
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		out = updated.toDomain()
		return nil
	})
	if err != nil {
		return domain.IPActivityRecord{}, err
	}
	return out, nil
}

func (s *Storage) Get(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	var row ipActivityModel
	if err := s.db.WithContext(ctx).Where("ip = ?", ip).Take(&row).Error; err != nil {
		return domain.IPActivityRecord{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Storage) ListBlocked(ctx context.Context) ([]domain.IPActivityRecord, error) {
	var rows []ipActivityModel
	if err := s.db.WithContext(ctx).Where("is_blocked = ?", true).Order("ip").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.IPActivityRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
