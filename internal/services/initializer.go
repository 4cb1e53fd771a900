package services

import (
	"errors"
	"fmt"

	"github.com/huangang/peerreview/internal/config"
	"github.com/huangang/peerreview/internal/models"
	"github.com/huangang/peerreview/pkg/logger"
	"gorm.io/gorm"
)

// ErrInitModeRequired is returned when the store already holds data and the
// operator has not chosen between reset and resume.
var ErrInitModeRequired = errors.New("store already exists: set database.init_mode (or INIT_MODE) to \"reset\" or \"resume\"")

type InitOutcome string

const (
	InitCreated InitOutcome = "created"
	InitReset   InitOutcome = "reset"
	InitResumed InitOutcome = "resumed"
)

type Initializer struct {
	db     *gorm.DB
	review *config.ReviewConfig
}

func NewInitializer(db *gorm.DB, review *config.ReviewConfig) *Initializer {
	return &Initializer{db: db, review: review}
}

func (i *Initializer) EnsureSchema() error {
	return storeError("ensure schema", models.AutoMigrate(i.db))
}

// Initialize makes the store match the configured roster and metrics.
// A missing store is created and seeded in any mode. An existing one is
// wiped and reseeded on reset, or kept on resume. With no mode it refuses.
func (i *Initializer) Initialize(mode string) (*IDMaps, InitOutcome, error) {
	var outcome InitOutcome

	if !models.StoreExists(i.db) {
		if err := i.EnsureSchema(); err != nil {
			return nil, "", err
		}
		if err := i.db.Transaction(i.seed); err != nil {
			return nil, "", storeError("seed store", err)
		}
		outcome = InitCreated
	} else {
		switch mode {
		case config.InitModeReset:
			if err := i.EnsureSchema(); err != nil {
				return nil, "", err
			}
			err := i.db.Transaction(func(tx *gorm.DB) error {
				if err := models.DeleteAllData(tx); err != nil {
					return err
				}
				return i.seed(tx)
			})
			if err != nil {
				return nil, "", storeError("reset store", err)
			}
			outcome = InitReset
		case config.InitModeResume:
			if err := i.EnsureSchema(); err != nil {
				return nil, "", err
			}
			outcome = InitResumed
		case "":
			return nil, "", ErrInitModeRequired
		default:
			return nil, "", fmt.Errorf("unknown init mode %q", mode)
		}
	}

	ids, err := i.loadIDMaps()
	if err != nil {
		return nil, "", err
	}
	logger.Infof("[Init] Store %s: %d users, %d metrics", outcome, len(ids.Users), len(ids.Metrics))
	return ids, outcome, nil
}

// seed inserts metrics, then users, in configured order.
func (i *Initializer) seed(tx *gorm.DB) error {
	metrics := make([]models.Metric, 0, len(i.review.Metrics))
	for _, m := range i.review.Metrics {
		metrics = append(metrics, models.Metric{Name: m.Name, Description: m.Description})
	}
	if err := tx.Create(&metrics).Error; err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}

	users := make([]models.User, 0, len(i.review.Roster))
	for _, r := range i.review.Roster {
		users = append(users, models.User{Username: r.Username, Name: r.Name})
	}
	if err := tx.Create(&users).Error; err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	return nil
}

func (i *Initializer) loadIDMaps() (*IDMaps, error) {
	var users []models.User
	if err := i.db.Order("id").Find(&users).Error; err != nil {
		return nil, storeError("load users", err)
	}
	var metrics []models.Metric
	if err := i.db.Order("id").Find(&metrics).Error; err != nil {
		return nil, storeError("load metrics", err)
	}
	return BuildIDMaps(i.review, users, metrics)
}
