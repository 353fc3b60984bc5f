package database

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tauraamui/framerecorder/pkg/database/dbconn"
	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/framerecorder/pkg/log"
	"github.com/tauraamui/xerror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	vendorName       = "tacusci"
	appName          = "framerecorder"
	databaseFileName = "index.db"
)

var (
	ErrCreateDBFile    = xerror.New("unable to create database file")
	ErrDBAlreadyExists = xerror.New("database file already exists")
)

var uc = os.UserCacheDir
var fs = afero.NewOsFs()

// Setup creates an empty snapshot index database file at the resolved
// location and migrates it.
func Setup() error {
	log.Info("Creating database file...") //nolint

	path, err := createFile()
	if err != nil {
		return err
	}

	db, err := Connect(path)
	if err != nil {
		return err
	}
	return db.Close()
}

func Destroy() error {
	dbFilePath, err := ResolvePath("")
	if err != nil {
		return xerror.Errorf("unable to delete database file: %w", err)
	}

	return fs.Remove(dbFilePath)
}

// Connect opens the index at path, or at the resolved default location
// when path is empty, and runs the automigrations.
func Connect(path string) (dbconn.GormWrapper, error) {
	dbPath, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	if !isInMemory(dbPath) {
		if err := fs.MkdirAll(filepath.Dir(dbPath), os.ModeDir|os.ModePerm); err != nil {
			return nil, xerror.Errorf("unable to create database dir: %w", err)
		}
	}

	log.Debug("Connecting to DB: %s", dbPath) //nolint
	db, err := openDBConnection(dbPath)
	if err != nil {
		return nil, xerror.Errorf("unable to open db connection: %w", err)
	}

	err = models.AutoMigrate(db)
	if err != nil {
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	return db, nil
}

var openDBConnection = func(path string) (dbconn.GormWrapper, error) {
	logger := logger.New(nil, logger.Config{LogLevel: logger.Silent})
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
	if err != nil {
		return nil, err
	}
	return dbconn.Wrap(db), nil
}

func isInMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file:")
}

// ResolvePath picks the index location: an explicit path first, then
// FRAME_RECORDER_DB, then the user cache dir.
func ResolvePath(path string) (string, error) {
	if len(path) > 0 {
		return path, nil
	}

	databasePath := os.Getenv("FRAME_RECORDER_DB")
	if len(databasePath) > 0 {
		return databasePath, nil
	}

	databaseParentDir, err := uc()
	if err != nil {
		return "", xerror.Errorf("unable to resolve %s database file location: %w", databaseFileName, err)
	}

	return filepath.Join(
		databaseParentDir,
		vendorName,
		appName,
		databaseFileName), nil
}

func createFile() (string, error) {
	path, err := ResolvePath("")
	if err != nil {
		return "", err
	}

	if _, err := fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm) //nolint

		f, err := fs.Create(path)
		if err != nil {
			return "", xerror.Errorf("%v: %w", ErrCreateDBFile, err)
		}
		return path, f.Close()
	}

	return "", xerror.Errorf("%w: %s", ErrDBAlreadyExists, path)
}
