package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReminderType - вид напоминания об очистке
type ReminderType string

const (
	ReminderManualCleaning  ReminderType = "manual_cleaning"
	ReminderMachineCleaning ReminderType = "machine_cleaning"
	ReminderPreEndWarning   ReminderType = "pre_end_warning"
)

// CleaningReminder - напоминание о ручной проверке очистки во время этапа.
// Либо без ответа (нет времени ответа и фото), либо закрыто полностью
// (время ответа и оба фото). Записи не удаляются - это журнал аудита.
type CleaningReminder struct {
	ID                      string       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID                 string       `json:"order_id" gorm:"type:uuid;not null;index"`
	StageName               OrderStage   `json:"stage_name" gorm:"type:varchar(50);not null"`
	ReminderType            ReminderType `json:"reminder_type" gorm:"type:varchar(50);not null"`
	ScheduledTime           time.Time    `json:"scheduled_time" gorm:"not null;index"`
	ActualResponseTime      *time.Time   `json:"actual_response_time"`
	IsResponded             bool         `json:"is_responded" gorm:"not null;default:false"`
	BeforePhotoURL          *string      `json:"before_photo_url" gorm:"type:text"`
	AfterPhotoURL           *string      `json:"after_photo_url" gorm:"type:text"`
	Notes                   *string      `json:"notes" gorm:"type:text"`
	RespondedBy             *string      `json:"responded_by" gorm:"type:varchar(255)"`
	ReminderIntervalSeconds int          `json:"reminder_interval_seconds" gorm:"not null;default:0"`
	CreatedAt               time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы
func (CleaningReminder) TableName() string {
	return "cleaning_reminders"
}

// BeforeCreate генерирует UUID
func (r *CleaningReminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
