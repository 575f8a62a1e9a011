package report

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrapping test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.Member{}, &models.Payment{}, &models.Attendance{},
		&models.Cost{}, &models.DailyReport{}, &models.MonthlyReport{},
	)
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return gdb
}

func addMember(t *testing.T, db *gorm.DB, pin string, gender models.Gender, createdAt time.Time) *models.Member {
	t.Helper()
	m := models.Member{
		FirstName: "Report",
		LastName:  "Fixture",
		Phone:     "+998900000000",
		Gender:    gender,
		PINCode:   pin,
		PlanType:  plan.Monthly,
	}
	m.CreatedAt = createdAt
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seeding member: %v", err)
	}
	return &m
}

func addPayment(t *testing.T, db *gorm.DB, memberID uint, amount string, method models.PaymentMethod, date time.Time, receipt string) {
	t.Helper()
	p := models.Payment{
		MemberID: memberID,
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
		PlanType: plan.Monthly,
		Method:   method,
		Receipt:  receipt,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seeding payment: %v", err)
	}
}

func addAttendance(t *testing.T, db *gorm.DB, memberID uint, day time.Time) {
	t.Helper()
	a := models.Attendance{MemberID: memberID, AttendedAt: plan.DateOf(day)}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seeding attendance: %v", err)
	}
}

// seedReportingDay builds a small club around the given day: three active
// members (one joining that day), one soft-deleted member that must not count,
// one member three days short of expiry, mixed-method payments and one cost.
func seedReportingDay(t *testing.T, db *gorm.DB, day time.Time) {
	t.Helper()

	m1 := addMember(t, db, "1111", models.GenderMale, day)
	m2 := addMember(t, db, "2222", models.GenderFemale, day.AddDate(0, -3, 0))

	ghost := addMember(t, db, "3333", models.GenderMale, day.AddDate(0, -1, 0))
	if err := db.Model(ghost).Update("active", false).Error; err != nil {
		t.Fatalf("deactivating member: %v", err)
	}

	// Never paid, so the enrollment date anchors a cycle that ends in 2 days.
	addMember(t, db, "4444", models.GenderFemale, day.AddDate(0, 0, -28))

	addPayment(t, db, m1.ID, "100", models.MethodCash, day, "r-1")
	addPayment(t, db, m2.ID, "50", models.MethodCard, day, "r-2")
	addPayment(t, db, m2.ID, "25", models.MethodTransfer, day, "r-3")
	// Outside the day, must not leak into the daily numbers.
	addPayment(t, db, m2.ID, "500", models.MethodCash, day.AddDate(0, -1, 0), "r-old")

	cost := models.Cost{Name: "water", Quantity: decimal.RequireFromString("30"), Date: day}
	if err := db.Create(&cost).Error; err != nil {
		t.Fatalf("seeding cost: %v", err)
	}

	addAttendance(t, db, m1.ID, day)
	addAttendance(t, db, m2.ID, day)
}

func TestGeneratorDaily(t *testing.T) {
	db := testDB(t)
	day := plan.DateOf(time.Now())
	seedReportingDay(t, db, day)

	report, err := NewGenerator(db).Daily(day)
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}

	if !report.Income.Equal(decimal.RequireFromString("175")) {
		t.Errorf("Income = %s, want 175", report.Income)
	}
	if !report.CashIncome.Equal(decimal.RequireFromString("100")) {
		t.Errorf("CashIncome = %s, want 100", report.CashIncome)
	}
	if !report.CardIncome.Equal(decimal.RequireFromString("50")) {
		t.Errorf("CardIncome = %s, want 50", report.CardIncome)
	}
	if !report.Expense.Equal(decimal.RequireFromString("30")) {
		t.Errorf("Expense = %s, want 30", report.Expense)
	}

	intChecks := []struct {
		name string
		got  int64
		want int64
	}{
		{"NewMembers", report.NewMembers, 1},
		{"TotalMembers", report.TotalMembers, 3},
		{"CheckIns", report.CheckIns, 2},
		{"AttendedMembers", report.AttendedMembers, 2},
		{"MaleMembers", report.MaleMembers, 1},
		{"FemaleMembers", report.FemaleMembers, 2},
		{"ExpiringSoon", report.ExpiringSoon, 1},
	}
	for _, c := range intChecks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestGeneratorDailyIsIdempotent(t *testing.T) {
	db := testDB(t)
	day := plan.DateOf(time.Now())
	seedReportingDay(t, db, day)

	gen := NewGenerator(db)
	first, err := gen.Daily(day)
	if err != nil {
		t.Fatalf("first Daily() error = %v", err)
	}
	second, err := gen.Daily(day)
	if err != nil {
		t.Fatalf("second Daily() error = %v", err)
	}

	var rows int64
	if err := db.Model(&models.DailyReport{}).Count(&rows).Error; err != nil {
		t.Fatalf("counting daily reports: %v", err)
	}
	if rows != 1 {
		t.Fatalf("daily report rows = %d, want 1 after rerun", rows)
	}
	if !first.Income.Equal(second.Income) || first.CheckIns != second.CheckIns {
		t.Errorf("rerun changed the numbers: %s/%d vs %s/%d",
			first.Income, first.CheckIns, second.Income, second.CheckIns)
	}
}

func TestGeneratorDailyEmptyPeriodZeroFills(t *testing.T) {
	db := testDB(t)

	report, err := NewGenerator(db).Daily(plan.DateOf(time.Now()))
	if err != nil {
		t.Fatalf("Daily() on empty db error = %v", err)
	}
	if !report.Income.IsZero() || !report.Expense.IsZero() {
		t.Errorf("Income/Expense = %s/%s, want 0/0", report.Income, report.Expense)
	}
	if report.CheckIns != 0 || report.TotalMembers != 0 {
		t.Errorf("CheckIns/TotalMembers = %d/%d, want 0/0", report.CheckIns, report.TotalMembers)
	}
}

func TestGeneratorMonthlyCoversWholeMonth(t *testing.T) {
	db := testDB(t)
	day := plan.DateOf(time.Now())
	seedReportingDay(t, db, day)

	report, err := NewGenerator(db).Monthly(day)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}

	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	if !report.Month.Equal(first) {
		t.Errorf("Month = %v, want %v", report.Month, first)
	}
	// The month at least contains the seeded day's payments.
	if report.Income.LessThan(decimal.RequireFromString("175")) {
		t.Errorf("Income = %s, want >= 175", report.Income)
	}
	if report.CheckIns != 2 {
		t.Errorf("CheckIns = %d, want 2", report.CheckIns)
	}
	if report.TotalMembers != 3 {
		t.Errorf("TotalMembers = %d, want 3", report.TotalMembers)
	}
}
