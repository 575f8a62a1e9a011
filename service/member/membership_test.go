package member

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
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

	err = gdb.AutoMigrate(&models.Member{}, &models.Payment{}, &models.Attendance{})
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return gdb
}

func newMember(t *testing.T, db *gorm.DB, planType plan.Type, enrolledAt time.Time) *models.Member {
	t.Helper()
	m := models.Member{
		FirstName: "Anchor",
		LastName:  "Fixture",
		Phone:     "+998911111111",
		Gender:    models.GenderFemale,
		PINCode:   "7777",
		PlanType:  planType,
	}
	m.CreatedAt = enrolledAt
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seeding member: %v", err)
	}
	return &m
}

func payOn(t *testing.T, db *gorm.DB, memberID uint, date time.Time, receipt string) *models.Payment {
	t.Helper()
	p := models.Payment{
		MemberID: memberID,
		Date:     plan.DateOf(date),
		PlanType: plan.Monthly,
		Method:   models.MethodCash,
		Receipt:  receipt,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seeding payment: %v", err)
	}
	return &p
}

func attendOn(t *testing.T, db *gorm.DB, memberID uint, day time.Time) {
	t.Helper()
	a := models.Attendance{MemberID: memberID, AttendedAt: plan.DateOf(day)}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("seeding attendance: %v", err)
	}
}

func TestResolveAnchorsOnLatestPayment(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := newMember(t, db, plan.Monthly, now.AddDate(0, -6, 0))

	payOn(t, db, m.ID, now.AddDate(0, 0, -40), "r-old")
	payOn(t, db, m.ID, now.AddDate(0, 0, -10), "r-new")

	snapshot, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantAnchor := plan.DateOf(now.AddDate(0, 0, -10))
	if !snapshot.Anchor.Equal(wantAnchor) {
		t.Errorf("Anchor = %v, want %v", snapshot.Anchor, wantAnchor)
	}
	if !snapshot.Expiry.Equal(wantAnchor.AddDate(0, 0, 30)) {
		t.Errorf("Expiry = %v, want %v", snapshot.Expiry, wantAnchor.AddDate(0, 0, 30))
	}
	if snapshot.Status != plan.StatusActive {
		t.Errorf("Status = %s, want %s", snapshot.Status, plan.StatusActive)
	}
}

func TestResolveFallsBackToEnrollmentDate(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := newMember(t, db, plan.Monthly, now.AddDate(0, 0, -5))

	snapshot, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantAnchor := plan.DateOf(now.AddDate(0, 0, -5))
	if !snapshot.Anchor.Equal(wantAnchor) {
		t.Errorf("Anchor = %v, want enrollment date %v", snapshot.Anchor, wantAnchor)
	}
}

func TestResolveIgnoresVoidedPayments(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := newMember(t, db, plan.Monthly, now.AddDate(0, -6, 0))

	payOn(t, db, m.ID, now.AddDate(0, 0, -20), "r-kept")
	voided := payOn(t, db, m.ID, now.AddDate(0, 0, -2), "r-voided")
	if err := db.Model(voided).Update("active", false).Error; err != nil {
		t.Fatalf("voiding payment: %v", err)
	}

	snapshot, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantAnchor := plan.DateOf(now.AddDate(0, 0, -20))
	if !snapshot.Anchor.Equal(wantAnchor) {
		t.Errorf("Anchor = %v, want %v from last kept payment", snapshot.Anchor, wantAnchor)
	}
}

func TestResolveCountsVisitsInsideCycleInclusive(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := newMember(t, db, plan.Monthly, now.AddDate(0, -6, 0))

	anchor := plan.DateOf(now.AddDate(0, 0, -30))
	payOn(t, db, m.ID, anchor, "r-cycle")

	attendOn(t, db, m.ID, anchor.AddDate(0, 0, -1)) // day before the cycle
	attendOn(t, db, m.ID, anchor)                   // first cycle day
	attendOn(t, db, m.ID, anchor.AddDate(0, 0, 15))
	attendOn(t, db, m.ID, anchor.AddDate(0, 0, 30)) // last cycle day

	snapshot, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if snapshot.VisitsUsed != 3 {
		t.Errorf("VisitsUsed = %d, want 3 (both cycle boundary days count)", snapshot.VisitsUsed)
	}
}

func TestResolveSkipsVisitCountForNonMonthlyPlans(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := newMember(t, db, plan.Premium, now)

	attendOn(t, db, m.ID, now)

	snapshot, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if snapshot.VisitsUsed != 0 {
		t.Errorf("VisitsUsed = %d, want 0 for a premium plan", snapshot.VisitsUsed)
	}
}

func TestResolveWithThresholdWidensWarningWindow(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	// 5 days left on the cycle.
	m := newMember(t, db, plan.Monthly, now.AddDate(0, 0, -25))

	standard, err := Resolve(db, m, now)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if standard.Status != plan.StatusActive {
		t.Errorf("default threshold Status = %s, want %s", standard.Status, plan.StatusActive)
	}

	widened, err := ResolveWithThreshold(db, m, now, 7)
	if err != nil {
		t.Fatalf("ResolveWithThreshold() error = %v", err)
	}
	if widened.Status != plan.StatusExpiringSoon {
		t.Errorf("7-day threshold Status = %s, want %s", widened.Status, plan.StatusExpiringSoon)
	}
}
