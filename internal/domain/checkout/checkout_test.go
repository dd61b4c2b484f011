package checkout

import (
	"testing"
	"time"

	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	cart := []collection.Entry{
		{ID: "p1", Title: "Syltherine", Price: 10},
		{ID: "p2", Title: "Leviosa", Price: 15},
	}

	s := NewSnapshot(cart)
	require.NotNil(t, s)
	assert.NotEqual(t, uuid.Nil, s.ID())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "25", s.Total().String())

	t.Run("isolated from later cart changes", func(t *testing.T) {
		cart[1].Price = 1000
		cart = collection.Remove(cart, "p2")
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, "25", s.Total().String())
		assert.Equal(t, 15.0, s.Items()[1].Price)
	})

	t.Run("items returns a copy", func(t *testing.T) {
		items := s.Items()
		items[0].Price = 99
		assert.Equal(t, 10.0, s.Items()[0].Price)
	})
}

func TestRestoreSnapshot(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 1, 22, 10, 0, 0, 0, time.UTC)
	s := RestoreSnapshot(id, []collection.Entry{{ID: "p1", Price: 10}}, at)
	assert.Equal(t, id, s.ID())
	assert.Equal(t, at, s.CreatedAt())
	assert.Equal(t, "10", s.Total().String())
	assert.False(t, s.IsEmpty())
}

func TestNewConfirmation(t *testing.T) {
	s := NewSnapshot([]collection.Entry{{ID: "p1", Price: 10}, {ID: "p2", Price: 15}})
	c := NewConfirmation(s, BillingDetails{Name: "Ada", Email: "ada@example.com", Address: "1 Main St"})
	assert.NotEqual(t, uuid.Nil, c.OrderReference)
	assert.Equal(t, s.ID(), c.SnapshotID)
	assert.Equal(t, "Ada", c.CustomerName)
	assert.Equal(t, 2, c.ItemCount)
	assert.Equal(t, "25", c.Total.String())

	ev := NewCheckoutCompletedEvent("dev-1", c)
	assert.Equal(t, EventTypeCheckoutCompleted, ev.EventType())
	assert.Equal(t, "25.00", ev.Total)
}
