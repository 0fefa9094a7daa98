package model

import "gorm.io/gorm"

// Store wraps the database handle shared by all record helpers. It is
// constructed once in main and injected into the services.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func InstallDB(db *gorm.DB) {
	if err := db.AutoMigrate(
		&User{},
		&ChatSession{},
		&ChatMessage{},
		&OrphanArtifact{}); err != nil {
		panic(err)
	}
}
