package models

import (
	"time"
)

// AuditLogEntry - запись журнала аудита (только добавление)
type AuditLogEntry struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID          *string   `json:"order_id" gorm:"type:uuid;index"`
	StageName        string    `json:"stage_name" gorm:"type:varchar(50)"`
	EventType        string    `json:"event_type" gorm:"type:varchar(100);not null;index"`
	EventDescription string    `json:"event_description" gorm:"type:text;not null"`
	OldValues        *string   `json:"old_values" gorm:"type:jsonb"`
	NewValues        *string   `json:"new_values" gorm:"type:jsonb"`
	UserID           *string   `json:"user_id" gorm:"type:varchar(255)"`
	Timestamp        time.Time `json:"timestamp" gorm:"not null;default:now();index"`
}

// TableName указывает имя таблицы
func (AuditLogEntry) TableName() string {
	return "audit_log"
}
