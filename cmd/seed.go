package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/syncwire/clerk-sync/internal/config"
	"github.com/syncwire/clerk-sync/internal/db"
	"github.com/syncwire/clerk-sync/internal/model"
	"github.com/syncwire/clerk-sync/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo customers...")

		if err := seedCustomers(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

// seedCustomers inserts demo customers (idempotent on email). The legacy
// rows have no clerk_id on purpose: they exist to exercise the email
// fallback tier of the webhook lookup.
func seedCustomers(dbx *sqlx.DB) error {
	customers := []model.Customer{
		{
			ID:        util.New(),
			ClerkID:   strptr("user_2demoAcme0000000000000000"),
			Email:     strptr("owner@acme.test"),
			FirstName: "Ada",
			LastName:  "Acme",
			Username:  "ada.acme",
		},
		{
			ID:        util.New(),
			Email:     strptr("legacy@example.test"),
			FirstName: "Lena",
			LastName:  "Legacy",
			Username:  "Lena Legacy",
		},
		{
			ID:        util.New(),
			Email:     strptr("pre-clerk@example.test"),
			FirstName: "Paul",
			LastName:  "Premigration",
			Username:  "Paul Premigration",
		},
	}

	// idempotent upsert based on email (UNIQUE)
	const q = `
INSERT INTO customers
    (id, clerk_id, email, first_name, last_name, username, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    first_name = VALUES(first_name),
    last_name  = VALUES(last_name),
    username   = VALUES(username),
    updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, c := range customers {
		if _, err := tx.Exec(q, c.ID, c.ClerkID, c.Email, c.FirstName, c.LastName, c.Username, now, now); err != nil {
			return fmt.Errorf("insert customer %q: %w", c.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit customers: %w", err)
	}
	return nil
}

func strptr(s string) *string { return &s }
