package models

import "time"

// CollectionBlobModel stores one serialized collection or checkout snapshot
// per storage key. The payload is opaque to the database.
type CollectionBlobModel struct {
	Key       string    `gorm:"column:key;type:varchar(255);primaryKey"`
	Payload   []byte    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (CollectionBlobModel) TableName() string {
	return "collection_blobs"
}
