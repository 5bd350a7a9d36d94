package models

const (
	ADMIN_USER_ROLE = "admin"
	BASIC_USER_ROLE = "basic"
)

type Role struct {
	BaseModel
	Name string `json:"name" gorm:"not null;unique"`
}

func (s *Store) FindRole(name string) (*Role, error) {
	role := Role{}
	err := s.db.Select("id", "name").First(&role, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &role, nil
}
