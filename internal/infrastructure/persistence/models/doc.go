// Package models contains the GORM models backing the database storage
// backend. Domain types never carry GORM tags; GormStorage maps between the
// opaque payload and these rows.
package models
