// Package profile mirrors each user's points total into a SQLite table,
// the server-side counterpart of the local ledger. The local ledger stays
// the source of truth for the session; mirror failures are logged and
// never block a task or points mutation.
package profile

import (
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Profile struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"index" json:"email"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	db     *gorm.DB
	logger *log.Logger
}

func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// UpdatePoints upserts the profile row keyed by user id.
func (s *Store) UpdatePoints(userID, email string, points int) error {
	p := Profile{ID: userID, Email: email, Points: points, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "points", "updated_at"}),
	}).Create(&p).Error
}

func (s *Store) Get(userID string) (Profile, error) {
	var p Profile
	err := s.db.First(&p, "id = ?", userID).Error
	return p, err
}

// SyncPoints is the fire-and-forget form used after ledger mutations.
func (s *Store) SyncPoints(userID, email string, points int) {
	if err := s.UpdatePoints(userID, email, points); err != nil {
		s.logger.Printf("[profile] sync points for %s failed: %v", userID, err)
	}
}
