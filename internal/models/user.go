package models

const (
	RoleAdmin    = "ADMIN"
	RoleBOD      = "BOD"
	RoleTeamLead = "TEAM_LEAD"
	RoleSale     = "SALE"
	RoleStaff    = "STAFF"
)

type User struct {
	Model
	FullName string `gorm:"size:255" json:"fullName"`
	Email    string `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Password string `gorm:"size:255" json:"-"` // bcrypt hash, never exposed
	Phone    string `gorm:"size:32" json:"phone,omitempty"`
	Role     string `gorm:"size:32;default:STAFF" json:"role"`
}

// Initials returns the upper-cased first ASCII letter of each name part,
// used by internal task codes (CVK-{initials}-{YY}-{MM}-{seq}).
func (u *User) Initials() string {
	out := make([]byte, 0, 4)
	prevSpace := true
	for _, r := range u.FullName {
		if r == ' ' {
			prevSpace = true
			continue
		}
		if prevSpace && r < 128 {
			c := byte(r)
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out = append(out, c)
		}
		prevSpace = false
	}
	if len(out) == 0 {
		return "NV"
	}
	return string(out)
}

type ProjectTeam struct {
	Model
	Name       string       `gorm:"size:255" json:"name"`
	TeamLeadID string       `gorm:"size:36" json:"teamLeadId"`
	TeamLead   *User        `gorm:"foreignKey:TeamLeadID" json:"teamLead,omitempty"`
	Members    []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

type TeamMember struct {
	Model
	TeamID string `gorm:"size:36;index" json:"teamId"`
	UserID string `gorm:"size:36" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
