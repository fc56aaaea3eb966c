// README: Firebase Admin SDK initialisation shared by the incident store and the rider fix source.
package infra

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	DatabaseURL     string
}

// Firebase owns the process-wide Firebase app. Clients are created lazily,
// once, and handed to components by the wiring code.
type Firebase struct {
	app *firebase.App

	fsOnce sync.Once
	fs     *firestore.Client
	fsErr  error

	dbOnce sync.Once
	rtdb   *db.Client
	dbErr  error
}

// NewFirebase creates the Firebase app. If CredentialsFile is empty,
// application-default credentials / GOOGLE_APPLICATION_CREDENTIALS are used.
func NewFirebase(ctx context.Context, cfg FirebaseConfig) (*Firebase, error) {
	opts := []option.ClientOption{}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return &Firebase{app: app}, nil
}

func (f *Firebase) Firestore(ctx context.Context) (*firestore.Client, error) {
	f.fsOnce.Do(func() {
		f.fs, f.fsErr = f.app.Firestore(ctx)
		if f.fsErr != nil {
			f.fsErr = fmt.Errorf("firebase app.Firestore: %w", f.fsErr)
		}
	})
	return f.fs, f.fsErr
}

func (f *Firebase) Database(ctx context.Context) (*db.Client, error) {
	f.dbOnce.Do(func() {
		f.rtdb, f.dbErr = f.app.Database(ctx)
		if f.dbErr != nil {
			f.dbErr = fmt.Errorf("firebase app.Database: %w", f.dbErr)
		}
	})
	return f.rtdb, f.dbErr
}

func (f *Firebase) Close() error {
	if f.fs != nil {
		return f.fs.Close()
	}
	return nil
}
