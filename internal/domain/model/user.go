package model

type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	// 舊資料可能沒有 email, 只有非空值需要唯一
	Email string `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_users_email_present,where:email <> ''" json:"email"`
	Role  string `gorm:"not null;default:'client';type:varchar(50)" json:"role"`
	BaseModel
}
