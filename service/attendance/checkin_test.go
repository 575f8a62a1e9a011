package attendance

import (
	"errors"
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
	// One connection so every session sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(&models.Member{}, &models.Payment{}, &models.Attendance{})
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return gdb
}

func seedMember(t *testing.T, db *gorm.DB, pin string, planType plan.Type, enrolledAt time.Time) *models.Member {
	t.Helper()
	m := models.Member{
		FirstName: "Test",
		LastName:  "Member",
		Phone:     "+998901234567",
		Gender:    models.GenderMale,
		PINCode:   pin,
		PlanType:  planType,
	}
	m.CreatedAt = enrolledAt
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seeding member: %v", err)
	}
	return &m
}

func seedAttendance(t *testing.T, db *gorm.DB, memberID uint, day time.Time) {
	t.Helper()
	record := models.Attendance{MemberID: memberID, AttendedAt: plan.DateOf(day), CodeUsed: "0000"}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("seeding attendance: %v", err)
	}
}

func attendanceCount(t *testing.T, db *gorm.DB, memberID uint) int64 {
	t.Helper()
	var count int64
	err := db.Model(&models.Attendance{}).
		Where("member_id = ? AND active = ?", memberID, true).
		Count(&count).Error
	if err != nil {
		t.Fatalf("counting attendance: %v", err)
	}
	return count
}

func TestCheckInHappyPathThenSameDayDuplicate(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := seedMember(t, db, "1234", plan.Monthly, now)

	result, err := CheckIn(db, "1234", now)
	if err != nil {
		t.Fatalf("CheckIn() error = %v, want success", err)
	}
	if result.Member.ID != m.ID {
		t.Errorf("result.Member.ID = %d, want %d", result.Member.ID, m.ID)
	}
	if !result.Attendance.AttendedAt.Equal(plan.DateOf(now)) {
		t.Errorf("AttendedAt = %v, want %v", result.Attendance.AttendedAt, plan.DateOf(now))
	}
	if result.Attendance.CodeUsed != "1234" {
		t.Errorf("CodeUsed = %q, want %q", result.Attendance.CodeUsed, "1234")
	}
	if result.Membership.Status != plan.StatusActive {
		t.Errorf("Membership.Status = %s, want %s", result.Membership.Status, plan.StatusActive)
	}

	_, err = CheckIn(db, "1234", now)
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second CheckIn() error = %v, want ErrAlreadyCheckedIn", err)
	}
	if got := attendanceCount(t, db, m.ID); got != 1 {
		t.Errorf("attendance rows = %d, want 1", got)
	}
}

func TestCheckInInvalidPIN(t *testing.T) {
	db := testDB(t)

	for _, pin := range []string{"", "12", "12345", "12a4", "١٢٣٤"} {
		_, err := CheckIn(db, pin, time.Now())
		if !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("CheckIn(%q) error = %v, want ErrInvalidPIN", pin, err)
		}
	}
}

func TestCheckInUnknownPIN(t *testing.T) {
	db := testDB(t)

	_, err := CheckIn(db, "9999", time.Now())
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("CheckIn(unknown pin) error = %v, want ErrMemberNotFound", err)
	}
}

func TestCheckInInactiveMemberLooksLikeUnknownPIN(t *testing.T) {
	db := testDB(t)
	m := seedMember(t, db, "4321", plan.Monthly, time.Now())
	if err := db.Model(m).Update("active", false).Error; err != nil {
		t.Fatalf("deactivating member: %v", err)
	}

	_, err := CheckIn(db, "4321", time.Now())
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("CheckIn(inactive member) error = %v, want ErrMemberNotFound", err)
	}
}

func TestCheckInExpiredByCalendar(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	// Monthly plan anchored 35 days back with no payments since.
	m := seedMember(t, db, "5678", plan.Monthly, now.AddDate(0, 0, -35))

	_, err := CheckIn(db, "5678", now)
	if !errors.Is(err, ErrPlanExpired) {
		t.Fatalf("CheckIn(expired member) error = %v, want ErrPlanExpired", err)
	}
	if got := attendanceCount(t, db, m.ID); got != 0 {
		t.Errorf("attendance rows = %d, want 0 on rejection", got)
	}
}

func TestCheckInExpiredByVisitCap(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := seedMember(t, db, "2468", plan.Monthly, now.AddDate(0, 0, -40))

	// A payment 15 days ago starts a fresh cycle...
	anchor := plan.DateOf(now.AddDate(0, 0, -15))
	payment := models.Payment{MemberID: m.ID, Date: anchor, PlanType: plan.Monthly, Method: models.MethodCash, Receipt: "r-2468"}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seeding payment: %v", err)
	}
	// ...but the member has already burned all 12 sessions in it.
	for i := 0; i < plan.MonthlyVisitCap; i++ {
		seedAttendance(t, db, m.ID, anchor.AddDate(0, 0, i))
	}

	_, err := CheckIn(db, "2468", now)
	if !errors.Is(err, ErrPlanExpired) {
		t.Fatalf("CheckIn(visit cap reached) error = %v, want ErrPlanExpired", err)
	}
}

func TestCheckInRenewedByPayment(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := seedMember(t, db, "1357", plan.Monthly, now.AddDate(0, 0, -60))

	payment := models.Payment{MemberID: m.ID, Date: plan.DateOf(now.AddDate(0, 0, -5)), PlanType: plan.Monthly, Method: models.MethodCard, Receipt: "r-1357"}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("seeding payment: %v", err)
	}

	if _, err := CheckIn(db, "1357", now); err != nil {
		t.Fatalf("CheckIn(renewed member) error = %v, want success", err)
	}
}

func TestCheckInLostRaceTranslatesToDuplicate(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := seedMember(t, db, "8642", plan.Monthly, now)

	if _, err := CheckIn(db, "8642", now); err != nil {
		t.Fatalf("CheckIn() error = %v, want success", err)
	}

	// Simulate the concurrent loser: it passed the pre-check before the winner
	// committed, so it goes straight to the insert and hits the unique index.
	_, err := recordAttendance(db, m.ID, plan.DateOf(now), "8642")
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("racing insert error = %v, want ErrAlreadyCheckedIn", err)
	}
	if got := attendanceCount(t, db, m.ID); got != 1 {
		t.Errorf("attendance rows = %d, want exactly 1 after race", got)
	}
}

func TestCheckInAllowedAgainAfterSoftDelete(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	m := seedMember(t, db, "9753", plan.Monthly, now)

	result, err := CheckIn(db, "9753", now)
	if err != nil {
		t.Fatalf("CheckIn() error = %v, want success", err)
	}
	err = db.Model(&models.Attendance{}).
		Where("id = ?", result.Attendance.ID).
		Update("active", false).Error
	if err != nil {
		t.Fatalf("soft-deleting attendance: %v", err)
	}

	// The uniqueness constraint only covers active rows, so staff undoing a
	// mistaken entry frees the slot.
	if _, err := CheckIn(db, "9753", now); err != nil {
		t.Fatalf("CheckIn() after soft delete error = %v, want success", err)
	}
	if got := attendanceCount(t, db, m.ID); got != 1 {
		t.Errorf("active attendance rows = %d, want 1", got)
	}
}
