package models

import "time"

// Document is a PDF attachment stored on disk. Position preserves the
// submission order; clients address an attachment by its position.
type Document struct {
	ID           uint64    `gorm:"primarykey" json:"-"`
	TaskID       uint64    `gorm:"not null;index" json:"-"`
	Position     int       `gorm:"not null" json:"position"`
	FileName     string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"originalname"`
	StoragePath  string    `gorm:"type:varchar(512);not null" json:"path"`
	Size         int64     `gorm:"not null" json:"size"`
	MimeType     string    `gorm:"type:varchar(100);not null" json:"mimetype"`
	CreatedAt    time.Time `json:"created_at"`
}
