package storage

import (
	"context"
	"crypton/backend/internal/models"
	"crypton/backend/internal/retention"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	RenameUser(ctx context.Context, userID, username string) error

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error

	AddMember(ctx context.Context, roomID, userID string) (bool, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	CountMembers(ctx context.Context, roomID string) (int64, error)

	AppendMessage(ctx context.Context, msg *models.Message, policy retention.Policy) (int64, error)
	TrimRoom(ctx context.Context, roomID string, policy retention.Policy) (int64, error)
	CountMessages(ctx context.Context, roomID string) (int64, error)
	DeleteOldestMessages(ctx context.Context, roomID string, n int64) error
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	LastActivity(ctx context.Context, roomID string) (*time.Time, error)

	PublishRoomEvent(ctx context.Context, event models.RoomEvent) error
	SubscribeRoomEvents(ctx context.Context) <-chan models.RoomEvent
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	bus localBus
}

// NewStorageService Constructor. rdb may be nil, in which case realtime events
// only reach subscribers in this process.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Membership{},
		&models.Message{},
	)
}

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		log.Printf("ERROR: Failed to create user: %v", err)
		return err
	}
	return nil
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) RenameUser(ctx context.Context, userID, username string) error {
	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("username", username)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		log.Printf("ERROR: Failed to create room %q: %v", room.Name, err)
		return err
	}
	return nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).Where("id = ?", roomID).Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		return nil, err
	}
	return &room, nil
}

// ListRooms returns every room, newest first.
func (s *Service) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// DeleteRoom removes a room together with its messages and memberships.
func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", roomID).Delete(&models.Room{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("room %s: %w", roomID, models.ErrNotFound)
		}
		return nil
	})
}

// AddMember records the membership if it does not exist yet and reports
// whether a row was created. Concurrent joins race on the unique
// (room_id, user_id) index; the loser's insert is a no-op.
func (s *Service) AddMember(ctx context.Context, roomID, userID string) (bool, error) {
	m := models.Membership{RoomID: roomID, UserID: userID}
	result := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if result.Error != nil {
		log.Printf("ERROR: Failed to add user %s to room %s: %v", userID, roomID, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Membership{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}
