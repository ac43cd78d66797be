package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailServiceRendersTemplates(t *testing.T) {
	rec := &recordingSender{}
	m := NewMailService(rec)
	require.True(t, m.Enabled())

	m.SendVerifyEmail("a@nitp.ac.in", "Aman", "482913")
	m.SendLeaveDecision("a@nitp.ac.in", "Aman", true, "2025-01-10", "2025-01-15", "")
	m.SendIssueResolved("a@nitp.ac.in", "Aman", "Broken tap")
	m.SendVerifyEmail("", "Nobody", "000000")
	m.Wait()

	sent := rec.all()
	require.Len(t, sent, 3)
	bodies := map[string]string{}
	for _, s := range sent {
		bodies[s.subject] = s.body
	}
	assert.Contains(t, bodies["Verify your campus account"], "482913")
	assert.Contains(t, bodies["Your hostel leave was approved"], "2025-01-15")
	assert.Contains(t, bodies["Your reported issue has been resolved"], "Broken tap")
}

func TestMailServiceDisabled(t *testing.T) {
	m := NewMailService(nil)
	assert.False(t, m.Enabled())
	m.SendVerifyEmail("a@nitp.ac.in", "Aman", "1")
	m.Wait()

	var nilSvc *MailService
	assert.False(t, nilSvc.Enabled())
	nilSvc.SendIssueResolved("a@nitp.ac.in", "Aman", "x")
	nilSvc.Wait()
}
