package storage

import (
	"errors"

	"github.com/apestel/hardwire/internal/hwerr"
	"gorm.io/gorm"
)

// AdminUserByGoogleID authorizes a federated subject: row exists =>
// admin, matching the binary authorization model in §3.
func (s *Store) AdminUserByGoogleID(googleID string) (*AdminUser, error) {
	var u AdminUser
	err := s.DB.Where("google_id = ?", googleID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hwerr.New(hwerr.KindAuthForbidden, "not an admin")
	}
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup admin user", err)
	}
	return &u, nil
}

func (s *Store) CreateAdminUser(u *AdminUser) error {
	if err := s.DB.Create(u).Error; err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "create admin user", err)
	}
	return nil
}

func (s *Store) ListAdminUsers() ([]AdminUser, error) {
	var rows []AdminUser
	if err := s.DB.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "list admin users", err)
	}
	return rows, nil
}

func (s *Store) GetAdminUser(id uint) (*AdminUser, error) {
	var u AdminUser
	err := s.DB.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, hwerr.New(hwerr.KindAuthForbidden, "admin user not found")
	}
	if err != nil {
		return nil, hwerr.Wrap(hwerr.KindDatabase, "lookup admin user", err)
	}
	return &u, nil
}

func (s *Store) DeleteAdminUser(id uint) error {
	if err := s.DB.Delete(&AdminUser{}, id).Error; err != nil {
		return hwerr.Wrap(hwerr.KindDatabase, "delete admin user", err)
	}
	return nil
}
