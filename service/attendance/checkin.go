package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/pkg/plan"
	"github.com/ozodbekdev/fitclub-server/service/member"
	"gorm.io/gorm"
)

// Every way a check-in can be turned away. These are expected, user-facing
// outcomes the kiosk renders, not failures.
var (
	ErrInvalidPIN       = errors.New("pin must be a 4-digit code")
	ErrMemberNotFound   = errors.New("no active member with this pin")
	ErrPlanExpired      = errors.New("membership has expired")
	ErrAlreadyCheckedIn = errors.New("member already checked in today")
)

// CheckInResult is returned to the kiosk on success.
type CheckInResult struct {
	Member     MemberSummary     `json:"member"`
	Membership member.Snapshot   `json:"membership"`
	Attendance models.Attendance `json:"attendance"`
}

type MemberSummary struct {
	ID        uint      `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PlanType  plan.Type `json:"plan_type"`
}

// CheckIn turns a PIN into an attendance record. Steps run in order and
// short-circuit: PIN format, active-member lookup, eligibility, same-day
// duplicate, insert. An inactive member is reported exactly like an unknown
// PIN so the kiosk cannot be used to probe which codes exist. The duplicate
// pre-check is advisory; the partial unique index on (member_id, attended_at)
// is what settles a concurrent race, and its violation comes back as
// ErrAlreadyCheckedIn.
func CheckIn(db *gorm.DB, pin string, now time.Time) (*CheckInResult, error) {
	if !validPIN(pin) {
		return nil, ErrInvalidPIN
	}

	var m models.Member
	err := db.Where("pin_code = ? AND active = ?", pin, true).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up member by pin: %w", err)
	}

	snapshot, err := member.Resolve(db, &m, now)
	if err != nil {
		return nil, err
	}
	if snapshot.Status == plan.StatusExpired {
		return nil, ErrPlanExpired
	}

	today := plan.DateOf(now)

	var existing int64
	err = db.Model(&models.Attendance{}).
		Where("member_id = ? AND attended_at = ? AND active = ?", m.ID, today, true).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("checking for same-day attendance: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyCheckedIn
	}

	record, err := recordAttendance(db, m.ID, today, pin)
	if err != nil {
		return nil, err
	}

	return &CheckInResult{
		Member: MemberSummary{
			ID:        m.ID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			PlanType:  m.PlanType,
		},
		Membership: snapshot,
		Attendance: *record,
	}, nil
}

// recordAttendance inserts the row and translates a lost uniqueness race into
// ErrAlreadyCheckedIn.
func recordAttendance(db *gorm.DB, memberID uint, day time.Time, pin string) (*models.Attendance, error) {
	record := models.Attendance{
		MemberID:   memberID,
		AttendedAt: day,
		CodeUsed:   pin,
	}
	err := db.Create(&record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyCheckedIn
	}
	if err != nil {
		return nil, fmt.Errorf("recording attendance: %w", err)
	}
	return &record, nil
}

func validPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
