package services

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/smgk/agency-erp/internal/apperr"
	"github.com/smgk/agency-erp/internal/models"
)

// DirectoryService manages users, teams, customers and referral partners.
type DirectoryService struct {
	db *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

type CreateUserInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (s *DirectoryService) CreateUser(in CreateUserInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("Người dùng cần có email và mật khẩu")
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("Email đã được sử dụng")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Password: string(hash),
		Phone:    in.Phone,
		Role:     in.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleStaff
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials and returns the user on success.
func (s *DirectoryService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Validation("Email hoặc mật khẩu không đúng")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Validation("Email hoặc mật khẩu không đúng")
	}
	return &user, nil
}

func (s *DirectoryService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("người dùng", err)
	}
	return &user, nil
}

func (s *DirectoryService) ListUsers() ([]models.User, error) {
	var out []models.User
	err := s.db.Order("full_name ASC").Find(&out).Error
	return out, err
}

type TeamInput struct {
	Name       string   `json:"name"`
	TeamLeadID string   `json:"teamLeadId"`
	MemberIDs  []string `json:"memberIds"`
}

func (s *DirectoryService) CreateTeam(in TeamInput) (*models.ProjectTeam, error) {
	var team models.ProjectTeam
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var lead models.User
		if err := tx.First(&lead, "id = ?", in.TeamLeadID).Error; err != nil {
			return notFoundOr("trưởng nhóm", err)
		}
		team = models.ProjectTeam{Name: in.Name, TeamLeadID: lead.ID}
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		for _, userID := range in.MemberIDs {
			var user models.User
			if err := tx.First(&user, "id = ?", userID).Error; err != nil {
				return notFoundOr("thành viên", err)
			}
			member := models.TeamMember{TeamID: team.ID, UserID: user.ID}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTeam(team.ID)
}

func (s *DirectoryService) GetTeam(id string) (*models.ProjectTeam, error) {
	var team models.ProjectTeam
	err := s.db.Preload("TeamLead").Preload("Members").Preload("Members.User").
		First(&team, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("đội dự án", err)
	}
	return &team, nil
}

func (s *DirectoryService) ListTeams() ([]models.ProjectTeam, error) {
	var out []models.ProjectTeam
	err := s.db.Preload("TeamLead").Order("name ASC").Find(&out).Error
	return out, err
}

func (s *DirectoryService) CreateCustomer(in models.Customer) (*models.Customer, error) {
	if in.Name == "" {
		return nil, apperr.Validation("Khách hàng cần có tên")
	}
	if in.Source == "" {
		in.Source = models.CustomerSourceInternal
	}
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *DirectoryService) GetCustomer(id string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.Preload("ReferralPartner").First(&customer, "id = ?", id).Error; err != nil {
		return nil, notFoundOr("khách hàng", err)
	}
	return &customer, nil
}

func (s *DirectoryService) ListCustomers() ([]models.Customer, error) {
	var out []models.Customer
	err := s.db.Preload("ReferralPartner").Order("name ASC").Find(&out).Error
	return out, err
}

func (s *DirectoryService) CreatePartner(in models.ReferralPartner) (*models.ReferralPartner, error) {
	if in.Name == "" {
		return nil, apperr.Validation("Đối tác giới thiệu cần có tên")
	}
	if err := s.db.Create(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *DirectoryService) ListPartners() ([]models.ReferralPartner, error) {
	var out []models.ReferralPartner
	err := s.db.Order("name ASC").Find(&out).Error
	return out, err
}
