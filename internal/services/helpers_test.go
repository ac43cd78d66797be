package services

import (
	"sync"
	"testing"
	"time"

	"campusdesk/internal/authz"
	"campusdesk/internal/db/dbtest"
	"campusdesk/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type sentMail struct{ to, subject, body string }

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingSender) Send(to, subject, body string) error {
	r.mu.Lock()
	r.sent = append(r.sent, sentMail{to, subject, body})
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) all() []sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMail(nil), r.sent...)
}

type testEnv struct {
	db     *gorm.DB
	clock  *fakeClock
	sender *recordingSender
	mail   *MailService
	notify *NotificationService
	votes  *VoteService
	issues *IssueService
	leaves *LeaveService
	gate   *GatePassService
	clubs  *ClubService
	accts  *AccountService

	student *models.User
	other   *models.User
	admin   *models.User
	club    *models.User
	public  *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.New(t)
	clock := newFakeClock(time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC))
	sender := &recordingSender{}

	e := &testEnv{db: conn, clock: clock, sender: sender}
	e.mail = NewMailService(sender)
	e.notify = NewNotificationService(conn)
	e.votes = NewVoteService(conn, nil, nil)
	e.votes.now = clock.Now
	e.issues = NewIssueService(conn, e.votes, nil, e.notify, e.mail, nil)
	e.issues.now = clock.Now
	e.leaves = NewLeaveService(conn, e.notify, e.mail, nil)
	e.leaves.now = clock.Now
	e.gate = NewGatePassService(conn, nil, nil)
	e.gate.now = clock.Now
	e.clubs = NewClubService(conn)
	e.clubs.now = clock.Now
	e.accts = NewAccountService(conn, e.mail, "nitp.ac.in")

	e.student = dbtest.User(t, conn, "aman@nitp.ac.in", authz.RoleStudent)
	e.other = dbtest.User(t, conn, "riya@nitp.ac.in", authz.RoleStudent)
	e.admin = dbtest.User(t, conn, "warden@nitp.ac.in", authz.RoleAdmin)
	e.club = dbtest.User(t, conn, "hackslash@nitp.ac.in", authz.RoleClubAdmin)
	e.public = dbtest.User(t, conn, "visitor@gmail.com", authz.RolePublic)
	return e
}

func (e *testEnv) post(t *testing.T, owner *models.User) *models.Post {
	t.Helper()
	p, err := e.issues.Create(t.Context(), owner, IssueInput{Title: "Water cooler broken", Description: "Block C, 2nd floor", Category: models.CategoryHostel})
	require.NoError(t, err)
	return p
}

func (e *testEnv) counters(t *testing.T, postID uint) (int, int) {
	t.Helper()
	var p models.Post
	require.NoError(t, e.db.First(&p, postID).Error)
	return p.Upvotes, p.Downvotes
}

func validLeave() LeaveInput {
	return LeaveInput{
		Phone:         "9876543210",
		ParentPhone:   "9123456780",
		HostelName:    "Kosi",
		RoomNumber:    "214",
		Reason:        "Going home for a family function",
		DepartureDate: "2025-01-10",
		ReturnDate:    "2025-01-15",
	}
}

// beforeInsertOnce runs fn inside the transaction of the first insert into
// table, after any count checks and just ahead of the INSERT itself. It
// stands in for a second request winning the race on another connection.
func (e *testEnv) beforeInsertOnce(t *testing.T, table string, fn func(tx *gorm.DB) error) {
	t.Helper()
	name := "campusdesk_test:race_" + table
	var once sync.Once
	err := e.db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		once.Do(func() {
			if err := fn(tx.Session(&gorm.Session{NewDB: true})); err != nil {
				t.Errorf("competing insert into %s: %v", table, err)
			}
		})
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.db.Callback().Create().Remove(name) })
}
