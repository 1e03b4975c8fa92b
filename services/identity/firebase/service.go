// Package firebaseid implements the identity contract on Firebase
// Authentication: account management through the Admin SDK, credential
// verification through the Identity Toolkit REST endpoint (the Admin SDK
// has no password check).
package firebaseid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/maharatedu/platform/core"
)

const signInURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

type Service struct {
	auth      *fbauth.Client
	webAPIKey string
	http      *http.Client
}

var _ core.Identity = (*Service)(nil)

func NewService(ctx context.Context, conf core.FirebaseConfig) (*Service, error) {
	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	auth, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth client")
	}
	return &Service{
		auth:      auth,
		webAPIKey: conf.WebAPIKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (svc *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding sign-in request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s?key=%s", signInURL, svc.webAPIKey), bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building sign-in request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling identity toolkit")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// INVALID_PASSWORD, EMAIL_NOT_FOUND, USER_DISABLED etc. all
		// surface as 400; none are worth distinguishing to callers.
		return "", core.ErrInvalidCredentials
	}

	var payload struct {
		LocalID string `json:"localId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decoding sign-in response")
	}
	if payload.LocalID == "" {
		return "", core.ErrInvalidCredentials
	}
	return payload.LocalID, nil
}

func (svc *Service) CreateAccount(ctx context.Context, email, password string) (string, error) {
	params := (&fbauth.UserToCreate{}).Email(email).Password(password)
	rec, err := svc.auth.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return "", core.ErrEmailInUse
		}
		return "", errors.Wrap(err, "creating firebase user")
	}
	return rec.UID, nil
}

func (svc *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := svc.auth.DeleteUser(ctx, id); err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "deleting firebase user")
	}
	return nil
}
