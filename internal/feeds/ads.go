package feeds

import (
	"time"

	"github.com/dmitrymomot/pulse/pkg/coalesce"
)

// AdsResource is the resource name ads are cached under.
const AdsResource = "ads"

// Ad is one creative returned by the ads endpoint.
type Ad struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url,omitempty"`
	TargetURL string `json:"target_url"`
	Position  string `json:"position"`
}

// AdsPolicy caches every ad list for ttl. Ads rarely change within a page view.
func AdsPolicy(ttl time.Duration) coalesce.Policy[[]Ad] {
	return coalesce.Fixed[[]Ad](ttl)
}
