package service_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-webapp/auth"
	"conference-webapp/database"
	"conference-webapp/database/sqlite"
	"conference-webapp/database/storetest"
	apperrors "conference-webapp/errors"
	"conference-webapp/model"
	"conference-webapp/service"
)

var signingKey = []byte("service-test-signing-key")

// now is a month before the fixture day, so every storetest session lies in the future.
var now = storetest.Base.AddDate(0, -1, 0)

type harness struct {
	store    database.Store
	issuer   *auth.Issuer
	services *service.Services
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "conference.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	issuer := auth.NewIssuer(signingKey, time.Hour)
	return harness{
		store:    store,
		issuer:   issuer,
		services: service.NewWithClock(store, issuer, nil, func() time.Time { return now }),
	}
}

func identityOf(user model.User) model.Identity {
	return model.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func (h harness) user(t *testing.T, role model.Role) (model.User, model.Identity) {
	t.Helper()
	user := storetest.NewUser(t, h.store, role)
	return user, identityOf(user)
}

func assertKind(t *testing.T, err error, kind apperrors.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), err.Error())
	if message != "" {
		assert.Equal(t, message, err.Error())
	}
}

func intPtr(v int) *int {
	return &v
}
