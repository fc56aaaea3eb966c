// README: Firestore-backed incident store; documents live in the "incidents" collection.
package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"ridesafe/internal/types"
)

const incidentsCollection = "incidents"

type geoPoint struct {
	Lat float64 `firestore:"lat"`
	Lng float64 `firestore:"lng"`
}

// incidentDoc is the on-disk shape shared with the rider app and the
// moderation console.
type incidentDoc struct {
	UserID         string    `firestore:"userId"`
	Type           string    `firestore:"type"`
	Title          string    `firestore:"title,omitempty"`
	Description    string    `firestore:"description"`
	Location       string    `firestore:"location"`
	LocationCoords *geoPoint `firestore:"locationCoords,omitempty"`
	Anonymous      bool      `firestore:"anonymous"`
	Status         string    `firestore:"status"`
	Timestamp      time.Time `firestore:"timestamp"`
	Severity       string    `firestore:"severity"`
	IsAIGenerated  bool      `firestore:"isAiGenerated"`
	ReportURL      string    `firestore:"reportUrl,omitempty"`
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Create(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrBadRequest)
	}
	if _, err := s.client.Collection(incidentsCollection).Doc(rec.ID).Create(ctx, toDoc(rec)); err != nil {
		return fmt.Errorf("firestore create incident: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (Record, error) {
	snap, err := s.client.Collection(incidentsCollection).Doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("firestore get incident: %w", err)
	}
	return fromSnapshot(snap)
}

func (s *FirestoreStore) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	iter := s.client.Collection(incidentsCollection).
		Where("userId", "==", string(userID)).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	out := make([]Record, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore list incidents: %w", err)
		}
		rec, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toDoc(rec Record) incidentDoc {
	doc := incidentDoc{
		UserID:        string(rec.UserID),
		Type:          string(rec.Type),
		Title:         rec.Title,
		Description:   rec.Description,
		Location:      rec.Location.Label,
		Anonymous:     rec.Anonymous,
		Status:        string(rec.Status),
		Timestamp:     rec.Timestamp,
		Severity:      string(rec.Severity),
		IsAIGenerated: rec.IsAIGenerated,
		ReportURL:     rec.AnalysisReportRef,
	}
	if c := rec.Location.Coordinate; c != nil {
		doc.LocationCoords = &geoPoint{Lat: c.Latitude, Lng: c.Longitude}
	}
	return doc
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (Record, error) {
	var doc incidentDoc
	if err := snap.DataTo(&doc); err != nil {
		return Record{}, fmt.Errorf("firestore decode incident %s: %w", snap.Ref.ID, err)
	}
	rec := Record{
		ID:                snap.Ref.ID,
		UserID:            types.ID(doc.UserID),
		Type:              Type(doc.Type),
		Title:             doc.Title,
		Description:       doc.Description,
		Location:          Location{Label: doc.Location},
		Timestamp:         doc.Timestamp,
		Anonymous:         doc.Anonymous,
		Status:            Status(doc.Status),
		Severity:          Severity(doc.Severity),
		IsAIGenerated:     doc.IsAIGenerated,
		AnalysisReportRef: doc.ReportURL,
	}
	if doc.LocationCoords != nil {
		c := types.NewCoordinate(doc.LocationCoords.Lat, doc.LocationCoords.Lng)
		rec.Location.Coordinate = &c
	}
	return rec, nil
}
