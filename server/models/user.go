package models

import (
	"errors"
	"fmt"

	"github.com/Daskott/lifealert/server/auth"
	"gorm.io/gorm"
)

var allFieldsExceptPassword = []string{"id",
	"email",
	"role_id",
	"created_at",
	"updated_at",
}

type User struct {
	BaseModel
	Email    string `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password string `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	RoleID   string `json:"role_id" gorm:"null"`
}

func (s *Store) IsAdmin(user *User) (bool, error) {
	if user.RoleID == "" {
		return false, nil
	}

	adminRole, err := s.FindRole(ADMIN_USER_ROLE)
	if err != nil {
		return false, err
	}

	return adminRole.ID == user.RoleID, nil
}

func (s *Store) FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := s.db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Store) FindUserPassword(email string) (string, error) {
	user := &User{}
	err := s.db.Select("Password").First(user, "email = ?", email).Error

	if err != nil {
		return "", err
	}
	return user.Password, nil
}

// CreateUser hashes the password & stores the user. The very first
// user becomes admin, every other user gets the basic role.
func (s *Store) CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	roleName := BASIC_USER_ROLE
	exists, err := s.AtLeastOneUserExists()
	if err != nil {
		return err
	}
	if !exists {
		roleName = ADMIN_USER_ROLE
	}

	role, err := s.FindRole(roleName)
	if err != nil {
		return err
	}
	user.RoleID = role.ID

	return s.db.Create(user).Error
}

func (s *Store) DeleteUser(id interface{}) error {
	return s.db.Delete(&User{}, "id = ?", id).Error
}

func (s *Store) AtLeastOneUserExists() (bool, error) {
	err := s.db.Select("id").First(&User{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
