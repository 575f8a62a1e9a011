package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ozodbekdev/fitclub-server/cmd/api"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/db"
	"github.com/ozodbekdev/fitclub-server/service/report"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		case "report":
			runReports(os.Args[2:])
			return
		default:
			utils.GetLogger().Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func openDatabase() *gorm.DB {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		utils.GetLogger().Fatalf("Database initialization error: %v", err)
	}
	return DB
}

func closeDatabase(DB *gorm.DB) {
	sqlDB, _ := DB.DB()
	sqlDB.Close()
	utils.GetLogger().Info("Database connection closed")
}

func runMigrations() {
	DB := openDatabase()
	defer closeDatabase(DB)
	utils.GetLogger().Info("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		utils.GetLogger().Fatalf("Migration error: %v", err)
	}
	utils.GetLogger().Info("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := map[interface{}]string{
		&models.User{}:               "User",
		&models.PasswordResetToken{}: "PasswordResetToken",
		&models.Club{}:               "Club",
		&models.Member{}:             "Member",
		&models.Payment{}:            "Payment",
		&models.Debt{}:               "Debt",
		&models.Cost{}:               "Cost",
		&models.Attendance{}:         "Attendance",
		&models.DailyReport{}:        "DailyReport",
		&models.MonthlyReport{}:      "MonthlyReport",
	}

	utils.GetLogger().Info("Starting database migrations...")
	for model, name := range migrations {
		utils.GetLogger().Infof("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
	}

	// The settings row is created here, never lazily at runtime.
	clubName := os.Getenv("CLUB_NAME")
	if clubName == "" {
		clubName = "FitClub"
	}
	if err := models.SeedClub(DB, clubName); err != nil {
		return fmt.Errorf("error seeding club settings: %w", err)
	}

	utils.GetLogger().Info("All migrations completed successfully")
	return nil
}

func startServer() {
	DB := openDatabase()
	defer closeDatabase(DB)
	utils.GetLogger().Info("Connected to the database")

	club, err := models.LoadClub(DB)
	if err != nil {
		utils.GetLogger().Fatalf("Club settings error: %v", err)
	}
	utils.GetLogger().WithField("club", club.Name).Info("Club settings loaded")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, club)

	go func() {
		if err := server.Run(); err != nil {
			utils.GetLogger().Fatalf("Server error: %v", err)
		}
	}()

	<-quit
	utils.GetLogger().Info("Shutting down server...")
}

// runReports is the externally-triggered report generation entry point,
// meant to be run from cron: `fitclub-server report --date 2026-08-27`.
func runReports(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dateStr := fs.String("date", "", "Date for daily report (YYYY-MM-DD), default today")
	monthStr := fs.String("month", "", "Month for monthly report (YYYY-MM), default this month")
	fs.Parse(args)

	date := time.Now()
	if *dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *dateStr, time.Local)
		if err != nil {
			utils.GetLogger().Fatal("Invalid date format. Use YYYY-MM-DD.")
		}
		date = parsed
	}
	month := date
	if *monthStr != "" {
		parsed, err := time.ParseInLocation("2006-01", *monthStr, time.Local)
		if err != nil {
			utils.GetLogger().Fatal("Invalid month format. Use YYYY-MM.")
		}
		month = parsed
	}

	DB := openDatabase()
	defer closeDatabase(DB)

	generator := report.NewGenerator(DB)
	daily, err := generator.Daily(date)
	if err != nil {
		utils.GetLogger().Fatalf("Daily report error: %v", err)
	}
	utils.GetLogger().WithField("date", daily.Date.Format("2006-01-02")).Info("Daily report generated")

	monthly, err := generator.Monthly(month)
	if err != nil {
		utils.GetLogger().Fatalf("Monthly report error: %v", err)
	}
	utils.GetLogger().WithField("month", monthly.Month.Format("2006-01")).Info("Monthly report generated")
}

func runDatabaseClear() {
	DB := openDatabase()
	defer closeDatabase(DB)

	utils.GetLogger().Info("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)
	if confirmation != "yes" {
		utils.GetLogger().Info("Database clear aborted")
		return
	}

	tables := []interface{}{
		&models.Attendance{},
		&models.Payment{},
		&models.Debt{},
		&models.Cost{},
		&models.DailyReport{},
		&models.MonthlyReport{},
		&models.Member{},
		&models.PasswordResetToken{},
		&models.User{},
		&models.Club{},
	}

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			utils.GetLogger().Warnf("Warning dropping table %T: %v", table, err)
		} else {
			utils.GetLogger().Infof("Table %T dropped", table)
		}
	}

	utils.GetLogger().Info("Database cleared")
}
