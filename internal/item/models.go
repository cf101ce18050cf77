package item

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is one entry on a user's bucket list.
//
// Image holds the bare filename as stored. Copies returned by List carry a
// resolved download URL in its place.
type Item struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImageURL reports the resolved image URL, or "" when the item has none.
func (i Item) ImageURL() string {
	if strings.HasPrefix(i.Image, "https://") || strings.HasPrefix(i.Image, "http://") {
		return i.Image
	}
	return ""
}
