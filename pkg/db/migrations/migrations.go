// Package migrations holds the schema migrations, registered in init.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
