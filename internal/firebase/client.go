package firebaseclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

type FirebaseClients struct {
	App             *firebase.App
	AuthClient      *auth.Client
	FirestoreClient *firestore.Client
}

// NewFirebaseClients initializes the Admin SDK from a service account file.
// projectID may be empty when the credentials file names the project.
func NewFirebaseClients(ctx context.Context, credentialsPath, projectID string) (*FirebaseClients, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	var appCfg *firebase.Config
	if projectID != "" {
		appCfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		_ = firestoreClient.Close()
		return nil, fmt.Errorf("error initializing Auth client: %w", err)
	}

	return &FirebaseClients{
		App:             app,
		AuthClient:      authClient,
		FirestoreClient: firestoreClient,
	}, nil
}

func (c *FirebaseClients) Close() error {
	return c.FirestoreClient.Close()
}
