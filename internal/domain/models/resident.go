package models

// Resident 表示社区住户
type Resident struct {
	BaseModel
	FullName   string `gorm:"type:varchar(120);not null" json:"full_name"`
	NationalID string `gorm:"type:varchar(30);uniqueIndex;not null" json:"national_id"` // 身份证号，唯一
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
	Email      string `gorm:"type:varchar(120)" json:"email"`

	// Relations
	KeyLinks []ResidentKey `gorm:"foreignKey:ResidentID" json:"key_links,omitempty"`
	Payments []Payment     `gorm:"foreignKey:ResidentID" json:"payments,omitempty"`
}
