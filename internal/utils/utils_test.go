package utils

import (
	"strings"
	"testing"
	"time"

	"campusdesk/internal/authz"

	"github.com/stretchr/testify/assert"
)

func TestRoleForEmail(t *testing.T) {
	assert.Equal(t, authz.RoleStudent, RoleForEmail("Aman.CS21@NITP.ac.in", "nitp.ac.in"))
	assert.Equal(t, authz.RolePublic, RoleForEmail("aman@gmail.com", "nitp.ac.in"))
	assert.Equal(t, authz.RolePublic, RoleForEmail("aman@fake-nitp.ac.in", "nitp.ac.in"))
	assert.Equal(t, authz.RolePublic, RoleForEmail("aman@nitp.ac.in", ""))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("9876543210"))
	assert.True(t, ValidPhone("+91 98765-43210"))
	assert.False(t, ValidPhone("987654321"))
	assert.False(t, ValidPhone("98765abc43210"))
	assert.False(t, ValidPhone("98+76543210"))
}

func TestGenerateVerifyCode(t *testing.T) {
	code := GenerateVerifyCode()
	assert.Len(t, code, 6)
	assert.Equal(t, 6, DigitCount(code))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	assert.NoError(t, err)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
}

func TestDistanceMeters(t *testing.T) {
	lat, lng := 25.581587, 84.832701
	assert.InDelta(t, 0, DistanceMeters(lat, lng, lat, lng), 1e-6)
	// 0.001 degrees of latitude is about 111 m
	assert.InDelta(t, 111.2, DistanceMeters(lat, lng, lat+0.001, lng), 0.5)
}

func TestTriageScore(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour)
	old := now.Add(-72 * time.Hour)

	assert.Zero(t, TriageScore(fresh, now, 0, 0))
	assert.Zero(t, TriageScore(fresh, now, 1, 5))
	assert.Greater(t, TriageScore(fresh, now, 10, 0), TriageScore(old, now, 10, 0))
	assert.Greater(t, TriageScore(fresh, now, 10, 0), TriageScore(fresh, now, 10, 4))
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("**Leaking tap**\n\n![tap](https://img.example.com/t.jpg)\n\n<script>alert(1)</script>")
	assert.Contains(t, out, "<strong>Leaking tap</strong>")
	assert.Contains(t, out, `loading="lazy"`)
	assert.NotContains(t, out, "<script>")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Broken fan & light", StripTags("  <b>Broken fan</b> &amp; light "))
	assert.False(t, strings.Contains(StripTags("<img src=x onerror=alert(1)>Hi"), "<"))
}

func TestParseIDAndLimit(t *testing.T) {
	assert.Equal(t, uint(12), ParseID("12"))
	assert.Zero(t, ParseID("-3"))
	assert.Zero(t, ParseID("abc"))
	assert.Equal(t, 20, ClampLimit("", 20, 100))
	assert.Equal(t, 100, ClampLimit("500", 20, 100))
	assert.Equal(t, 7, ClampLimit("7", 20, 100))
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, -time.Second)
	assert.Equal(t, 1, c.Get("a"))
	assert.Nil(t, c.Get("b"))

	c.Delete("a")
	assert.Nil(t, c.Get("a"))
}
