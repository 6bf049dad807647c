package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modestanalytics/api/models"
)

type fakeOwnerStore struct {
	byEmail map[string]*models.Owner
	nextID  int
}

func newFakeOwnerStore() *fakeOwnerStore {
	return &fakeOwnerStore{byEmail: make(map[string]*models.Owner), nextID: 1}
}

func (f *fakeOwnerStore) Create(ctx context.Context, email, token string) (*models.Owner, error) {
	owner := &models.Owner{ID: f.nextID, Email: email, Token: token, CreatedAt: time.Now().UTC()}
	f.nextID++
	f.byEmail[email] = owner
	return owner, nil
}

func (f *fakeOwnerStore) FindByEmail(ctx context.Context, email string) (*models.Owner, error) {
	if owner, ok := f.byEmail[email]; ok {
		return owner, nil
	}
	return nil, models.ErrOwnerNotFound
}

func (f *fakeOwnerStore) SetVerification(ctx context.Context, ownerID int, code string, expiry time.Time) error {
	for _, owner := range f.byEmail {
		if owner.ID == ownerID {
			owner.VerificationCode = &code
			owner.VerificationCodeExpiry = &expiry
			return nil
		}
	}
	return errors.New("owner missing")
}

func (f *fakeOwnerStore) ClearVerification(ctx context.Context, ownerID int) error {
	for _, owner := range f.byEmail {
		if owner.ID == ownerID {
			owner.VerificationCode = nil
			owner.VerificationCodeExpiry = nil
			return nil
		}
	}
	return errors.New("owner missing")
}

type captureMailer struct {
	err  error
	to   string
	text string
}

func (m *captureMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.text = textBody
	return nil
}

func newOwnerRouter(store *fakeOwnerStore, mailer *captureMailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewOwnerHandlers(store, mailer, "https://modestanalytics.com", zap.NewNop())
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/verify", h.Verify)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_NewOwnerGetsTokenAndCode(t *testing.T) {
	store := newFakeOwnerStore()
	mailer := &captureMailer{}
	r := newOwnerRouter(store, mailer)

	w := postJSON(t, r, "/register", gin.H{"email": "Owner@Example.com"})

	assert.Equal(t, http.StatusOK, w.Code)

	owner := store.byEmail["owner@example.com"]
	require.NotNil(t, owner, "email should be lowercased")
	assert.NotEmpty(t, owner.Token)
	require.NotNil(t, owner.VerificationCode)
	assert.Len(t, *owner.VerificationCode, 6)

	assert.Equal(t, "owner@example.com", mailer.to)
	assert.Contains(t, mailer.text, *owner.VerificationCode)
}

func TestRegister_ExistingOwnerKeepsToken(t *testing.T) {
	store := newFakeOwnerStore()
	mailer := &captureMailer{}
	r := newOwnerRouter(store, mailer)

	postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})
	original := store.byEmail["owner@example.com"].Token

	w := postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, original, store.byEmail["owner@example.com"].Token)
}

func TestRegister_MailFailureSurfaces(t *testing.T) {
	store := newFakeOwnerStore()
	mailer := &captureMailer{err: errors.New("smtp down")}
	r := newOwnerRouter(store, mailer)

	w := postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to send verification email.")
}

func TestRegister_InvalidEmail(t *testing.T) {
	r := newOwnerRouter(newFakeOwnerStore(), &captureMailer{})

	w := postJSON(t, r, "/register", gin.H{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerify_Success(t *testing.T) {
	store := newFakeOwnerStore()
	mailer := &captureMailer{}
	r := newOwnerRouter(store, mailer)

	postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})
	owner := store.byEmail["owner@example.com"]
	code := *owner.VerificationCode

	w := postJSON(t, r, "/verify", gin.H{"email": "owner@example.com", "code": code})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), owner.Token)
	assert.Contains(t, w.Body.String(), "/embed.js")
	assert.Nil(t, owner.VerificationCode, "pending state is cleared on success")
	assert.Nil(t, owner.VerificationCodeExpiry)
}

func TestVerify_NoPending(t *testing.T) {
	r := newOwnerRouter(newFakeOwnerStore(), &captureMailer{})

	w := postJSON(t, r, "/verify", gin.H{"email": "owner@example.com", "code": "123456"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No verification pending for this email.")
}

func TestVerify_Expired(t *testing.T) {
	store := newFakeOwnerStore()
	r := newOwnerRouter(store, &captureMailer{})

	postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})
	owner := store.byEmail["owner@example.com"]
	past := time.Now().UTC().Add(-time.Minute)
	owner.VerificationCodeExpiry = &past

	w := postJSON(t, r, "/verify", gin.H{"email": "owner@example.com", "code": *owner.VerificationCode})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Verification code expired. Please request a new one.")
	assert.NotNil(t, owner.VerificationCode, "expiry check leaves state untouched")
}

func TestVerify_Mismatch(t *testing.T) {
	store := newFakeOwnerStore()
	r := newOwnerRouter(store, &captureMailer{})

	postJSON(t, r, "/register", gin.H{"email": "owner@example.com"})
	owner := store.byEmail["owner@example.com"]

	w := postJSON(t, r, "/verify", gin.H{"email": "owner@example.com", "code": "000000x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid verification code.")
	assert.NotNil(t, owner.VerificationCode, "mismatch does not mutate state")
}
