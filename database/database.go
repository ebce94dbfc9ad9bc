package database

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func gormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}
}

// ConnectDB opens the database selected by DATABASE_DRIVER. Postgres is the
// default; "sqlite" is meant for local development.
func ConnectDB() {
	var err error
	switch config.Get("DATABASE_DRIVER", "postgres") {
	case "sqlite":
		err = ConnectSQLite(config.Get("DATABASE_URL", "file:tutor_booking.db"))
	default:
		DB, err = gorm.Open(postgres.Open(config.Config("DATABASE_URL")), gormConfig())
	}
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}

	fmt.Println("✅ Database connected successfully")
}

// ConnectSQLite replaces DB with a SQLite database. A single connection is
// used so that ":memory:" databases are shared and writers are serialized.
func ConnectSQLite(dsn string) error {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&models.User{},
		&models.AcademicRecord{},
		&models.TeacherSchedule{},
		&models.Appointment{},
		&models.Message{},
	)
}

func Migrate() {
	if err := AutoMigrate(); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}
	fmt.Println("✅ Database migration successful")
}

func SeedAdmin() {
	adminEmail := strings.ToLower(strings.TrimSpace(config.Config("ADMIN_EMAIL")))
	adminPassword := config.Config("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️ ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed.")
		return
	}

	var count int64
	err := DB.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error
	if err != nil {
		log.Fatalf("🔥 Failed to check for admin user: %v", err)
		return
	}

	if count > 0 {
		log.Println("Admin user already exists.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("🔥 Failed to hash admin password: %v", err)
		return
	}

	adminUser := models.User{
		FullName: config.Get("ADMIN_FULL_NAME", "Admin"),
		Surname:  config.Config("ADMIN_SURNAME"),
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}

	if err := DB.Create(&adminUser).Error; err != nil {
		log.Fatalf("🔥 Failed to seed admin user: %v", err)
		return
	}

	log.Println("✅ Admin user seeded successfully")
}

// IsUniqueViolation reports whether err came from a unique index. Drivers
// that do not translate their errors are matched on the message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

var (
	tsMu   sync.Mutex
	lastTS time.Time
)

// ServerTimestamp returns a UTC timestamp strictly greater than any value it
// returned before in this process. Messages are ordered by it, so two writes
// in the same clock tick still get distinct, ordered stamps. Steps are whole
// microseconds because Postgres stores no finer precision.
func ServerTimestamp() time.Time {
	tsMu.Lock()
	defer tsMu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(lastTS) {
		now = lastTS.Add(time.Microsecond)
	}
	lastTS = now
	return now
}
