// Package dbtest spins up a throwaway embedded PostgreSQL instance for
// integration tests. Each test package gets its own instance on a free port
// and a fresh schema.
package dbtest

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
)

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// New starts an embedded PostgreSQL, migrates the full schema and returns a
// connected DB. The instance is torn down via t.Cleanup. Tests are skipped
// when the embedded binaries cannot be started (e.g. offline CI).
func New(t *testing.T) *database.DB {
	t.Helper()

	port, err := freePort()
	if err != nil {
		t.Fatalf("no free port: %v", err)
	}

	dataPath := filepath.Join(t.TempDir(), "pg")

	embedded := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(dataPath).
		Port(uint32(port)).
		Database("ucpwms_test").
		Username("postgres").
		Password("postgres").
		StartTimeout(45 * time.Second))

	if err := embedded.Start(); err != nil {
		t.Skipf("embedded postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = embedded.Stop() })

	dsn := fmt.Sprintf(
		"host=localhost port=%d user=postgres password=postgres dbname=ucpwms_test sslmode=disable",
		port,
	)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}

	db := &database.DB{DB: gdb}
	if err := db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.PackagingType{},
		&models.Pallet{},
		&models.Position{},
		&models.Ucp{},
		&models.UcpItem{},
		&models.UcpHistory{},
		&models.UcpSequence{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}

	return db
}
