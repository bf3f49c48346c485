package state

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/AbrarFaiyad/energy-profile-calculator/internal/models"
)

// Store persists workflow state to an embedded database so an
// interrupted run can be resumed.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the state database in dir.
func NewStore(dir string) (*Store, error) {
	return Open(filepath.Join(dir, "workflow.db"))
}

// Open opens a store from a sqlite DSN.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open state database")
	}

	if err := db.AutoMigrate(models.All...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate state database")
	}
	return &Store{db: db}, nil
}

// Save persists the run record and every task in one transaction.
func (st *Store) Save(s *State) error {
	run := s.Run()
	tasks := s.Tasks()

	return st.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&run).Error; err != nil {
			return errors.Wrap(err, "failed to save run")
		}
		if len(tasks) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&tasks).Error; err != nil {
			return errors.Wrap(err, "failed to save tasks")
		}
		return nil
	})
}

// Load restores the most recent unarchived, uncompleted run.
func (st *Store) Load() (*State, error) {
	var run models.WorkflowRun
	err := st.db.
		Where("archived = ? AND completed_at IS NULL", false).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("no resumable workflow run found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load run")
	}

	var tasks []*models.Task
	if err := st.db.Where("run_id = ?", run.ID).Order("position ASC").Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load tasks")
	}

	return Restore(run, tasks), nil
}

// Run fetches one persisted run record.
func (st *Store) Run(id uuid.UUID) (models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := st.db.First(&run, "id = ?", id).Error
	return run, errors.Wrap(err, "failed to load run")
}

// Archive marks a run so Load skips it.
func (st *Store) Archive(id uuid.UUID) error {
	err := st.db.
		Model(&models.WorkflowRun{}).
		Where("id = ?", id).
		Update("archived", true).Error
	return errors.Wrap(err, "failed to archive run")
}

// Close releases the underlying database handle.
func (st *Store) Close() error {
	db, err := st.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
