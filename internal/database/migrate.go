package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"math"
	"path"
	"strconv"
	"strings"
)

//go:embed migrations
var migrationFiles embed.FS

// MigrationExecutor applies the embedded migrations for one driver.
type MigrationExecutor struct {
	conn              *Conn
	directoryName     string
	migrationFileList []string
}

func NewMigrationExecutor(conn *Conn) (*MigrationExecutor, error) {
	directoryName := path.Join("migrations", conn.driver)
	fileList, err := fs.ReadDir(migrationFiles, directoryName)

	if err != nil {
		return nil, err
	}

	migrationFileList := make([]string, 0, len(fileList))

	for _, file := range fileList {
		if !file.IsDir() {
			migrationFileList = append(migrationFileList, file.Name())
		}
	}

	return &MigrationExecutor{conn, directoryName, migrationFileList}, nil
}

func (executor *MigrationExecutor) CreateMigrationTable() error {
	return executor.conn.Exec(
		"CREATE TABLE IF NOT EXISTS trade_migration (migration_number integer NOT NULL UNIQUE)",
	)
}

func (executor *MigrationExecutor) CurrentMigration() (int, error) {
	row := executor.conn.QueryRow(
		"SELECT COALESCE(MAX(migration_number), 0) FROM trade_migration",
	)

	var migrationNumber int64
	err := row.Scan(&migrationNumber)

	return int(migrationNumber), err
}

func (executor *MigrationExecutor) applyMigration(migrationNumber int, reverse bool) (bool, error) {
	var matchedFilename string

	for _, filename := range executor.migrationFileList {
		splitList := strings.Split(filename, "_")
		fileMigrationNumber, _ := strconv.Atoi(splitList[0])
		isReverseFile := splitList[len(splitList)-1] == "reverse.sql"

		if migrationNumber == fileMigrationNumber && reverse == isReverseFile {
			matchedFilename = path.Join(executor.directoryName, filename)
			break
		}
	}

	if len(matchedFilename) == 0 {
		return true, nil
	}

	log.Printf("Applying migration: %s\n", matchedFilename)

	file, readErr := migrationFiles.ReadFile(matchedFilename)

	if readErr != nil {
		return false, readErr
	}

	// NOTE: SQL functions in migration files won't work.
	queries := strings.Split(string(file), ";\n")

	err := executor.conn.Transaction(context.Background(), func(tx *Tx) error {
		for _, query := range queries {
			if strings.TrimSpace(query) == "" {
				continue
			}

			if err := tx.Exec(query); err != nil {
				return fmt.Errorf("%s: %w", matchedFilename, err)
			}
		}

		if reverse {
			return tx.Exec(
				"DELETE FROM trade_migration WHERE migration_number = $1",
				migrationNumber,
			)
		}

		return tx.Exec(
			"INSERT INTO trade_migration (migration_number) VALUES ($1) ON CONFLICT DO NOTHING",
			migrationNumber,
		)
	})

	return false, err
}

// ApplyMigrations moves the database forwards or backwards to a migration number.
func (executor *MigrationExecutor) ApplyMigrations(selectedMigrationNumber int) error {
	if err := executor.CreateMigrationTable(); err != nil {
		return err
	}

	startMigrationNumber, currentErr := executor.CurrentMigration()

	if currentErr != nil {
		return currentErr
	}

	reverse := false

	if selectedMigrationNumber < startMigrationNumber {
		reverse = true
	}

	for i := startMigrationNumber; i != selectedMigrationNumber; {
		if !reverse {
			i += 1
		}

		stop, err := executor.applyMigration(i, reverse)

		if reverse {
			i -= 1
		}

		if err != nil {
			return err
		}

		if stop {
			break
		}
	}

	return nil
}

// Migrate applies every migration for the connection's driver.
func Migrate(conn *Conn) error {
	executor, err := NewMigrationExecutor(conn)

	if err != nil {
		return err
	}

	return executor.ApplyMigrations(math.MaxInt)
}
