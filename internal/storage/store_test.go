package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesal/haggler/internal/agent"
	"github.com/vesal/haggler/internal/market"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	key, err := DeriveKey("test-passphrase")
	require.Nil(t, err)
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), key)
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	offer := 90.0
	session := &StoredSession{
		ID:      "abc",
		Context: "Blue couch for $120",
		Goal:    "Buy for $100",
		Budget:  100,
		Turns: []agent.Turn{
			{Role: agent.RoleSeller, Content: "Still available!"},
			{Role: agent.RoleAssistant, Content: "Would you take 90?", Reasoning: "Anchor low.", Offer: &offer},
		},
	}
	require.Nil(t, store.SaveSession(session))

	got, err := store.GetSession("abc")
	require.Nil(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Context, got.Context)
	assert.Equal(t, 100.0, got.Budget)
	require.Len(t, got.Turns, 2)
	require.NotNil(t, got.Turns[1].Offer)
	assert.Equal(t, 90.0, *got.Turns[1].Offer)
	assert.False(t, got.Ended)

	// Mark ended and update
	got.Ended = true
	got.Turns = append(got.Turns, agent.Turn{Role: agent.RoleAssistant, Content: "Thank you, all the best!"})
	require.Nil(t, store.SaveSession(got))

	updated, err := store.GetSession("abc")
	require.Nil(t, err)
	assert.True(t, updated.Ended)
	assert.Len(t, updated.Turns, 3)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetSession("missing")
	assert.Nil(t, err)
	assert.Nil(t, got)
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)

	require.Nil(t, store.SaveSession(&StoredSession{ID: "x", Context: "c", Goal: "g", Budget: 1}))
	require.Nil(t, store.DeleteSession("x"))

	got, err := store.GetSession("x")
	assert.Nil(t, err)
	assert.Nil(t, got)
}

func TestSearchRoundTrip(t *testing.T) {
	store := newTestStore(t)

	listings := []market.Listing{
		{URL: "u1", Description: "Upright piano", Price: 1000},
		{URL: "u2", Description: "Guitar", Price: 200},
	}
	id, err := store.SaveSearch("used piano", listings)
	require.Nil(t, err)

	got, err := store.GetSearch(id)
	require.Nil(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "used piano", got.Query)
	assert.Len(t, got.Listings, 2)

	latest, err := store.LatestSearch()
	require.Nil(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ID)
}

func TestLatestSearchEmpty(t *testing.T) {
	store := newTestStore(t)

	latest, err := store.LatestSearch()
	assert.Nil(t, err)
	assert.Nil(t, latest)
}

func TestCompletionCache(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.GetCompletion("k1")
	require.Nil(t, err)
	assert.False(t, ok)

	require.Nil(t, store.SetCompletion("k1", "test-model", "[]"))

	got, ok, err := store.GetCompletion("k1")
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", got)

	// Overwrite is allowed
	require.Nil(t, store.SetCompletion("k1", "test-model", "null"))
	got, _, _ = store.GetCompletion("k1")
	assert.Equal(t, "null", got)
}

func TestCredentialRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.Nil(t, store.SetCredential("marketplace_token", "s3cret"))

	got, err := store.GetCredential("marketplace_token")
	require.Nil(t, err)
	assert.Equal(t, "s3cret", got)

	missing, err := store.GetCredential("nope")
	require.Nil(t, err)
	assert.Equal(t, "", missing)
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := DeriveKey("passphrase")
	require.Nil(t, err)

	ciphertext, err := Encrypt([]byte("hello"), key)
	require.Nil(t, err)
	assert.NotContains(t, ciphertext, "hello")

	plaintext, err := Decrypt(ciphertext, key)
	require.Nil(t, err)
	assert.Equal(t, "hello", string(plaintext))

	otherKey, err := DeriveKey("wrong")
	require.Nil(t, err)
	_, err = Decrypt(ciphertext, otherKey)
	assert.NotNil(t, err)
}
