package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cafefinder.de/web/internal/strapi/strapitest"
)

func TestRegistryReusesVisitor(t *testing.T) {
	r := NewRegistry(strapitest.New(), Config{DefaultCity: "Bonn"})
	a := r.Get("s1")
	assert.Same(t, a, r.Get("s1"))
	assert.NotSame(t, a, r.Get("s2"))
	assert.Equal(t, "Bonn", a.Directory.CurrentCity())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryExpiresIdleVisitors(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(strapitest.New(), Config{TTL: time.Minute, Now: func() time.Time { return now }})
	a := r.Get("s1")
	r.Get("s2")

	now = now.Add(90 * time.Second)
	b := r.Get("s1")
	assert.NotSame(t, a, b)
	assert.Equal(t, 1, r.Len())
}
