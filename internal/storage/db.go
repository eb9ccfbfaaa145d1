package storage

import (
	. "go-board/pkg/board"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Board{},
		&BoardMember{},
		&ChatMessage{},
	)

	if err != nil {
		return nil, err
	}

	return db, nil
}
