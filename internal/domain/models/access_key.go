package models

// AccessKeyStatus 钥匙状态
type AccessKeyStatus string

const (
	AccessKeyStatusActive   AccessKeyStatus = "active"
	AccessKeyStatusInactive AccessKeyStatus = "inactive"
)

// AccessKey 计费单元（单元/地块），费用按钥匙生成
type AccessKey struct {
	BaseModel
	KeyNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"key_number"`
	Status    AccessKeyStatus `gorm:"type:varchar(20);default:'active'" json:"status"`

	// Relations
	Dues []Due `gorm:"foreignKey:AccessKeyID" json:"dues,omitempty"`
}

// ResidentKey 住户与钥匙的多对多关联
type ResidentKey struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	ResidentID  uint `gorm:"uniqueIndex:idx_resident_key;not null" json:"resident_id"`
	AccessKeyID uint `gorm:"uniqueIndex:idx_resident_key;index;not null" json:"access_key_id"`

	Resident  *Resident  `gorm:"foreignKey:ResidentID" json:"resident,omitempty"`
	AccessKey *AccessKey `gorm:"foreignKey:AccessKeyID" json:"access_key,omitempty"`
}

// TableName 指定关联表名
func (ResidentKey) TableName() string {
	return "resident_keys"
}
