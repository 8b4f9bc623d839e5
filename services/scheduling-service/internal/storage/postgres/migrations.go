package postgres

import (
	"embed"

	"github.com/md-rashed-zaman/clinicagenda/libs/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func Migrations() ([]db.Migration, error) {
	return db.LoadMigrations(migrationFS, "migrations")
}
