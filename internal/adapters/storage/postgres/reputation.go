package postgres

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func (s *Storage) UpsertBlacklist(ctx context.Context, entry domain.BlacklistEntry) (domain.BlacklistEntry, error) {
	row := blacklistModel{IP: entry.IP, Reason: entry.Reason, AddedAt: entry.AddedAt.UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "added_at"}),
	}).Create(&row).Error
	if err != nil {
		return domain.BlacklistEntry{}, err
	}
	return row.toDomain(), nil
}

func (s *Storage) FindBlacklist(ctx context.Context, ip string) (domain.BlacklistEntry, error) {
	var row blacklistModel
	if err := s.db.WithContext(ctx).Where("ip = ?", ip).Take(&row).Error; err != nil {
		return domain.BlacklistEntry{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Storage) DeleteBlacklist(ctx context.Context, ip string) (bool, error) {
	res := s.db.WithContext(ctx).Where("ip = ?", ip).Delete(&blacklistModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) ListBlacklist(ctx context.Context) ([]domain.BlacklistEntry, error) {
	var rows []blacklistModel
	if err := s.db.WithContext(ctx).Order("added_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.BlacklistEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Storage) InsertWhitelist(ctx context.Context, entry domain.WhitelistEntry) (domain.WhitelistEntry, bool, error) {
	row := whitelistModel{IP: entry.IP, AddedAt: entry.AddedAt.UTC()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return domain.WhitelistEntry{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row.toDomain(), true, nil
	}

	existing, err := s.FindWhitelist(ctx, entry.IP)
	if err != nil {
		return domain.WhitelistEntry{}, false, err
	}
	return existing, false, nil
}

func (s *Storage) FindWhitelist(ctx context.Context, ip string) (domain.WhitelistEntry, error) {
	var row whitelistModel
	if err := s.db.WithContext(ctx).Where("ip = ?", ip).Take(&row).Error; err != nil {
		return domain.WhitelistEntry{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Storage) DeleteWhitelist(ctx context.Context, ip string) (bool, error) {
	res := s.db.WithContext(ctx).Where("ip = ?", ip).Delete(&whitelistModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Storage) ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error) {
	var rows []whitelistModel
	if err := s.db.WithContext(ctx).Order("added_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.WhitelistEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
