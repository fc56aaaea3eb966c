// README: Rider fix source backed by Firebase RTDB, for apps that publish fixes there directly.
package location

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"ridesafe/internal/types"
)

const riderLocationsNode = "rider_locations"

// rtdbFixEntry mirrors one rider entry under /rider_locations.
type rtdbFixEntry struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Accuracy   float64 `json:"accuracy"`
	Permission string  `json:"permission,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

type FirebaseSource struct {
	client *db.Client
}

func NewFirebaseSource(client *db.Client) *FirebaseSource {
	return &FirebaseSource{client: client}
}

func (f *FirebaseSource) LatestFix(ctx context.Context, riderID types.ID) (Fix, error) {
	var entry rtdbFixEntry
	if err := f.client.NewRef(riderLocationsNode).Child(string(riderID)).Get(ctx, &entry); err != nil {
		return Fix{}, fmt.Errorf("rtdb get %s: %w", riderID, err)
	}
	if entry.Timestamp == 0 {
		return Fix{}, ErrNoFix
	}
	perm := Permission(entry.Permission)
	if perm == "" {
		perm = PermissionGranted
	}
	return Fix{
		RiderID:    riderID,
		Position:   types.NewCoordinate(entry.Lat, entry.Lng),
		AccuracyM:  entry.Accuracy,
		Permission: perm,
		RecordedAt: time.UnixMilli(entry.Timestamp),
	}, nil
}

func (f *FirebaseSource) SaveFix(ctx context.Context, fix Fix) error {
	entry := rtdbFixEntry{
		Lat:        fix.Position.Latitude,
		Lng:        fix.Position.Longitude,
		Accuracy:   fix.AccuracyM,
		Permission: string(fix.Permission),
		Timestamp:  fix.RecordedAt.UnixMilli(),
	}
	if err := f.client.NewRef(riderLocationsNode).Child(string(fix.RiderID)).Set(ctx, entry); err != nil {
		return fmt.Errorf("rtdb set %s: %w", fix.RiderID, err)
	}
	return nil
}
