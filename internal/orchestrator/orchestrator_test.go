package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"listing-generator/internal/generation"
	"listing-generator/internal/listing"
	"listing-generator/internal/session"
)

const (
	userA = "6f0f1f52-5d43-4a8b-9c51-0c9b8f2b1e01"
	userB = "a3b2c1d0-1111-4222-8333-944455556666"
)

type fakeSessions struct {
	mu           sync.Mutex
	token        string
	refreshed    string
	refreshErr   error
	currentErr   error
	refreshCalls int
	signOuts     int
	currentCalls int
}

func (f *fakeSessions) Current(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls++
	return f.token, f.currentErr
}

func (f *fakeSessions) Refresh(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.token = f.refreshed
	return f.refreshed, nil
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	return nil
}

// fakeValidator maps tokens to a subject, or to a rejection reason.
type fakeValidator struct {
	subjects map[string]string
	rejected map[string]session.Reason
}

func (f *fakeValidator) Validate(token string) (*session.Claims, error) {
	if reason, ok := f.rejected[token]; ok {
		return nil, &session.InvalidatedError{Reason: reason}
	}
	subject, ok := f.subjects[token]
	if !ok {
		return nil, &session.InvalidatedError{Reason: session.ReasonMalformed}
	}
	return &session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Role:             session.AuthenticatedRole,
	}, nil
}

type fakeUploader struct {
	url      string
	err      error
	paths    []string
	onUpload func()
}

func (f *fakeUploader) Upload(_ context.Context, path string, _ []byte, _ string) (string, error) {
	f.paths = append(f.paths, path)
	if f.onUpload != nil {
		f.onUpload()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type reply struct {
	draft listing.Draft
	err   error
}

type fakeGenerator struct {
	mu       sync.Mutex
	replies  []reply
	payloads []listing.Payload
	tokens   []string
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeGenerator) Generate(_ context.Context, token string, payload listing.Payload) (listing.Draft, error) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.tokens = append(f.tokens, token)
	block, started := f.block, f.started
	var r reply
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return r.draft, r.err
}

type fakeSaver struct {
	inserted []listing.NewListing
	err      error
}

func (f *fakeSaver) InsertListing(_ context.Context, in listing.NewListing) (*listing.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, in)
	return &listing.Listing{
		ID:       uuid.New(),
		UserID:   in.UserID,
		Draft:    in.Draft,
		ImageURL: in.ImageURL,
		Currency: in.CurrencyOrDefault(),
	}, nil
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type countingProgress struct {
	starts, stops int
}

func (p *countingProgress) Start() { p.starts++ }
func (p *countingProgress) Stop()  { p.stops++ }

type harness struct {
	sessions  *fakeSessions
	validator *fakeValidator
	uploader  *fakeUploader
	generator *fakeGenerator
	saver     *fakeSaver
	store     *memoryKV
	progress  *countingProgress
	redirects []Redirect
	orch      *Orchestrator
}

func newHarness() *harness {
	h := &harness{
		sessions: &fakeSessions{token: "token-a", refreshed: "token-a2"},
		validator: &fakeValidator{
			subjects: map[string]string{"token-a": userA, "token-a2": userA, "token-b": userB},
			rejected: map[string]session.Reason{},
		},
		uploader:  &fakeUploader{url: "https://cdn.example.com/listing-inputs/new.jpg"},
		generator: &fakeGenerator{},
		saver:     &fakeSaver{},
		store:     newMemoryKV(),
		progress:  &countingProgress{},
	}
	h.orch = New(Deps{
		Sessions:   h.sessions,
		Validator:  h.validator,
		Uploader:   h.uploader,
		Generator:  h.generator,
		Listings:   h.saver,
		Store:      h.store,
		Progress:   h.progress,
		OnRedirect: func(r Redirect) { h.redirects = append(h.redirects, r) },
		Logger:     zerolog.Nop(),
	})
	return h
}

func (h *harness) reply(draft listing.Draft, err error) {
	h.generator.replies = append(h.generator.replies, reply{draft: draft, err: err})
}

func phoneDraft() listing.Draft {
	return listing.Draft{
		Title:        "Apple iPhone 14 Pro 256GB Deep Purple",
		Description:  "Excellent condition iPhone 14 Pro with original box and charger.",
		BulletPoints: []string{"256GB storage", "Battery health 91%", "Box and charger included"},
		PriceMin:     620,
		PriceMax:     700,
	}
}

func chairDraft() listing.Draft {
	return listing.Draft{
		Title:        "Mid-century walnut lounge chair",
		Description:  "Solid walnut lounge chair with original upholstery, light wear.",
		BulletPoints: []string{"Solid walnut frame", "Original upholstery", "Local pickup only"},
		PriceMin:     150,
		PriceMax:     220,
	}
}

var (
	phoneText = "Apple iPhone 14 Pro 256GB in excellent condition with box and charger"
	photo     = &ImageFile{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
	rateLimit = &generation.ProviderError{Code: generation.CodeRateLimited, Status: 429, Retryable: true, Message: "AI provider rate-limited the request. Please retry in a moment."}
)

func TestSubmit_TextSuccess(t *testing.T) {
	h := newHarness()
	h.reply(phoneDraft(), nil)

	draft, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: "  " + phoneText + "  "})
	require.NoError(t, err)
	assert.Equal(t, phoneDraft(), draft)

	snap := h.orch.Snapshot()
	assert.Equal(t, PhaseSucceeded, snap.Phase)
	assert.False(t, snap.InFlight)
	require.NotNil(t, snap.Draft)
	assert.Nil(t, snap.DraftImageURL)
	assert.Equal(t, &listing.Payload{Mode: listing.ModeText, Text: phoneText}, snap.LastPayload)
	assert.Equal(t, userA, snap.UserID)

	assert.Equal(t, []string{"token-a"}, h.generator.tokens)
	assert.Equal(t, 1, h.progress.starts)
	assert.Equal(t, 1, h.progress.stops)
	assert.Empty(t, h.uploader.paths)

	_, stored, _ := h.store.Get(context.Background(), DraftKey(userA))
	assert.True(t, stored)
}

func TestSubmit_ImageSuccessUploadsUnderUserPath(t *testing.T) {
	h := newHarness()
	h.reply(chairDraft(), nil)

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})
	require.NoError(t, err)

	require.Len(t, h.uploader.paths, 1)
	assert.Regexp(t, "^"+userA+"/[0-9a-f-]{36}\\.jpg$", h.uploader.paths[0])

	require.Len(t, h.generator.payloads, 1)
	assert.Equal(t, listing.NewImagePayload(h.uploader.url), h.generator.payloads[0])

	snap := h.orch.Snapshot()
	require.NotNil(t, snap.DraftImageURL)
	assert.Equal(t, h.uploader.url, *snap.DraftImageURL)
}

func TestSubmit_FailedImageRegenerationKeepsDraftImage(t *testing.T) {
	h := newHarness()
	h.reply(chairDraft(), nil)
	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})
	require.NoError(t, err)
	before := h.orch.Snapshot()
	require.NotNil(t, before.DraftImageURL)

	h.uploader.url = "https://cdn.example.com/listing-inputs/second.jpg"
	h.reply(listing.Draft{}, rateLimit)
	_, err = h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})
	require.ErrorIs(t, err, error(rateLimit))

	after := h.orch.Snapshot()
	assert.Equal(t, PhaseFailed, after.Phase)
	assert.Equal(t, before.Draft, after.Draft)
	require.NotNil(t, after.DraftImageURL)
	assert.Equal(t, *before.DraftImageURL, *after.DraftImageURL)
	assert.Equal(t, "https://cdn.example.com/listing-inputs/second.jpg", after.LastPayload.ImageURL)
}

func TestSubmit_FailedImageAfterTextDraftKeepsTextDraft(t *testing.T) {
	h := newHarness()
	h.reply(phoneDraft(), nil)
	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	h.reply(listing.Draft{}, rateLimit)
	_, err = h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})
	require.Error(t, err)

	snap := h.orch.Snapshot()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, phoneDraft(), *snap.Draft)
	assert.Nil(t, snap.DraftImageURL)
}

func TestSubmit_UploadFailureIsDistinct(t *testing.T) {
	h := newHarness()
	h.uploader.err = errors.New("bucket not found")

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "Image upload failed: bucket not found", err.Error())
	assert.Empty(t, h.generator.payloads)
	assert.Nil(t, h.orch.Snapshot().LastPayload)
	assert.Equal(t, 1, h.progress.starts)
	assert.Equal(t, 1, h.progress.stops)
	assert.Empty(t, h.redirects)
}

func TestSubmit_ProgressCoversUpload(t *testing.T) {
	h := newHarness()
	h.reply(chairDraft(), nil)
	var startsDuringUpload, stopsDuringUpload int
	h.uploader.onUpload = func() {
		startsDuringUpload, stopsDuringUpload = h.progress.starts, h.progress.stops
	}

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})
	require.NoError(t, err)

	assert.Equal(t, 1, startsDuringUpload)
	assert.Equal(t, 0, stopsDuringUpload)
	assert.Equal(t, 1, h.progress.starts)
	assert.Equal(t, 1, h.progress.stops)
}

func TestSubmit_UploadAuthRejectionSignsOut(t *testing.T) {
	h := newHarness()
	h.reply(phoneDraft(), nil)
	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	h.uploader.err = &session.InvalidatedError{Reason: session.ReasonRejected, Err: errors.New("jwt expired")}
	_, err = h.orch.Submit(context.Background(), Input{Mode: listing.ModeImage, Image: photo})

	require.ErrorIs(t, err, session.ErrSessionInvalidated)
	var uploadErr *UploadError
	assert.False(t, errors.As(err, &uploadErr))
	assert.Equal(t, 1, h.sessions.signOuts)
	require.Len(t, h.redirects, 1)
	assert.Equal(t, LoginPath, h.redirects[0].Path)

	snap := h.orch.Snapshot()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, phoneDraft(), *snap.Draft)
	assert.Equal(t, 2, h.progress.starts)
	assert.Equal(t, 2, h.progress.stops)
}

func TestSubmit_InputErrorMakesNoCalls(t *testing.T) {
	h := newHarness()

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: "iphone used good condition"})

	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, 0, h.sessions.currentCalls)
	assert.Empty(t, h.generator.payloads)
	assert.Equal(t, PhaseFailed, h.orch.Snapshot().Phase)
}

func TestRetry_ResubmitsRecordedPayload(t *testing.T) {
	h := newHarness()
	h.reply(listing.Draft{}, rateLimit)
	h.reply(phoneDraft(), nil)

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
	require.Error(t, err)
	recorded := h.orch.Snapshot().LastPayload
	require.NotNil(t, recorded)

	draft, err := h.orch.Retry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, phoneDraft(), draft)

	require.Len(t, h.generator.payloads, 2)
	assert.Equal(t, *recorded, h.generator.payloads[1])
	assert.Equal(t, h.generator.payloads[0], h.generator.payloads[1])
}

func TestRetry_WithoutPreviousAttempt(t *testing.T) {
	h := newHarness()

	_, err := h.orch.Retry(context.Background())

	assert.ErrorIs(t, err, ErrNothingToRetry)
}

func TestSubmit_ConcurrentCallIsRejected(t *testing.T) {
	h := newHarness()
	h.generator.block = make(chan struct{})
	h.generator.started = make(chan struct{})
	h.reply(phoneDraft(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
		done <- err
	}()

	select {
	case <-h.generator.started:
	case <-time.After(5 * time.Second):
		t.Fatal("generation did not start")
	}
	assert.True(t, h.orch.Snapshot().InFlight)

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: "Sony WH-1000XM5 headphones black, barely used with case"})
	assert.ErrorIs(t, err, ErrGenerationInFlight)
	_, err = h.orch.Retry(context.Background())
	assert.ErrorIs(t, err, ErrGenerationInFlight)
	assert.Equal(t, phoneText, h.orch.Snapshot().RawInput)

	close(h.generator.block)
	require.NoError(t, <-done)
	assert.Len(t, h.generator.payloads, 1)
	assert.False(t, h.orch.Snapshot().InFlight)
}

func TestSessionGate_ExpiredTokenIsRefreshedOnce(t *testing.T) {
	h := newHarness()
	h.validator.rejected["token-a"] = session.ReasonExpired
	h.reply(phoneDraft(), nil)

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	assert.Equal(t, 1, h.sessions.refreshCalls)
	assert.Equal(t, []string{"token-a2"}, h.generator.tokens)
	assert.Equal(t, 0, h.sessions.signOuts)
	assert.Empty(t, h.redirects)
}

func TestSessionGate_FailedRefreshSignsOut(t *testing.T) {
	h := newHarness()
	h.validator.rejected["token-a"] = session.ReasonExpired
	h.sessions.refreshErr = errors.New("refresh token revoked")

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})

	require.ErrorIs(t, err, session.ErrSessionInvalidated)
	assert.Equal(t, 1, h.sessions.refreshCalls)
	assert.Equal(t, 1, h.sessions.signOuts)
	assert.Len(t, h.redirects, 1)
	assert.Empty(t, h.generator.payloads)
}

func TestSessionGate_InvalidSessionPreservesDraft(t *testing.T) {
	reasons := []session.Reason{
		session.ReasonIssuerMismatch,
		session.ReasonAudienceMismatch,
		session.ReasonMissingSubject,
		session.ReasonInvalidRole,
		session.ReasonMalformed,
	}

	for _, reason := range reasons {
		t.Run(string(reason), func(t *testing.T) {
			h := newHarness()
			h.reply(phoneDraft(), nil)
			_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})
			require.NoError(t, err)

			h.validator.rejected["token-a"] = reason
			_, err = h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: "Sony WH-1000XM5 headphones black, barely used with case"})

			require.ErrorIs(t, err, session.ErrSessionInvalidated)
			got, ok := session.ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, reason, got)
			assert.Equal(t, 0, h.sessions.refreshCalls)
			assert.Equal(t, 1, h.sessions.signOuts)
			require.Len(t, h.redirects, 1)
			assert.Equal(t, LoginPath, h.redirects[0].Path)
			assert.Equal(t, SessionExpiredNotice, h.redirects[0].Notice)

			snap := h.orch.Snapshot()
			require.NotNil(t, snap.Draft)
			assert.Equal(t, phoneDraft(), *snap.Draft)
			_, stored, _ := h.store.Get(context.Background(), DraftKey(userA))
			assert.True(t, stored)
		})
	}
}

func TestSessionGate_MissingSession(t *testing.T) {
	h := newHarness()
	h.sessions.currentErr = errors.New("no active session")

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})

	reason, ok := session.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, session.ReasonMissingSession, reason)
	assert.Len(t, h.redirects, 1)
}

func TestSessionGate_ServiceRejectionSignsOut(t *testing.T) {
	h := newHarness()
	h.reply(listing.Draft{}, &session.InvalidatedError{Reason: session.ReasonRejected})

	_, err := h.orch.Submit(context.Background(), Input{Mode: listing.ModeText, Text: phoneText})

	require.ErrorIs(t, err, session.ErrSessionInvalidated)
	assert.Equal(t, 1, h.sessions.signOuts)
	assert.Len(t, h.redirects, 1)
	assert.Equal(t, "/login?notice=Please+sign+in+again.+Unsaved+draft+data+was+preserved.&redirect=%2Fdashboard", h.redirects[0].URL())
}

func TestLoad_MigratesLegacyDraft(t *testing.T) {
	h := newHarness()
	legacy := `{"title":"Mid-century walnut lounge chair","description":"Solid walnut lounge chair with original upholstery, light wear.","bullet_points":["Solid walnut frame","Original upholstery","Local pickup only"],"price_min":150,"price_max":220}`
	require.NoError(t, h.store.Set(context.Background(), legacyDraftKey, legacy))

	require.NoError(t, h.orch.Load(context.Background()))

	snap := h.orch.Snapshot()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, chairDraft(), *snap.Draft)
	assert.Nil(t, snap.DraftImageURL)

	_, legacyFound, _ := h.store.Get(context.Background(), legacyDraftKey)
	assert.False(t, legacyFound)
	_, userFound, _ := h.store.Get(context.Background(), DraftKey(userA))
	assert.True(t, userFound)
}

func TestLoad_PerUserKeyWinsOverLegacy(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.orch.drafts.save(ctx, userA, storedDraft{Draft: phoneDraft()}))
	require.NoError(t, h.store.Set(ctx, legacyDraftKey, `{"title":"legacy"}`))

	require.NoError(t, h.orch.Load(ctx))

	require.NotNil(t, h.orch.Snapshot().Draft)
	assert.Equal(t, phoneDraft(), *h.orch.Snapshot().Draft)
	_, legacyFound, _ := h.store.Get(ctx, legacyDraftKey)
	assert.True(t, legacyFound)
}

func TestLoad_InvalidStoredDraftLoadsAsNone(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Set(context.Background(), DraftKey(userA), `{"title":"short"}`))

	require.NoError(t, h.orch.Load(context.Background()))

	assert.Nil(t, h.orch.Snapshot().Draft)
}

func TestLoad_DraftsAreScopedPerUser(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	url := "https://cdn.example.com/a.jpg"
	require.NoError(t, h.orch.drafts.save(ctx, userA, storedDraft{Draft: chairDraft(), ImageURL: &url}))

	h.sessions.token = "token-b"
	require.NoError(t, h.orch.Load(ctx))
	assert.Nil(t, h.orch.Snapshot().Draft)

	h.sessions.token = "token-a"
	require.NoError(t, h.orch.Load(ctx))
	snap := h.orch.Snapshot()
	require.NotNil(t, snap.Draft)
	require.NotNil(t, snap.DraftImageURL)
	assert.Equal(t, url, *snap.DraftImageURL)
}

func TestUpdateDraft(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.reply(phoneDraft(), nil)
	_, err := h.orch.Submit(ctx, Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	title := "  Apple iPhone 14 Pro 256GB unlocked  "
	updated, err := h.orch.UpdateDraft(ctx, listing.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Apple iPhone 14 Pro 256GB unlocked", updated.Title)

	raw, _, _ := h.store.Get(ctx, DraftKey(userA))
	assert.Contains(t, raw, "Apple iPhone 14 Pro 256GB unlocked")

	low := 900.0
	_, err = h.orch.UpdateDraft(ctx, listing.Patch{PriceMin: &low})
	assert.ErrorIs(t, err, listing.ErrInvalidPriceRange)
	assert.Equal(t, 620.0, h.orch.Snapshot().Draft.PriceMin)
}

func TestUpdateDraft_WithoutDraft(t *testing.T) {
	h := newHarness()
	title := "Some new title here"

	_, err := h.orch.UpdateDraft(context.Background(), listing.Patch{Title: &title})

	assert.ErrorIs(t, err, ErrNoDraft)
}

func TestResetDraft(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.reply(phoneDraft(), nil)
	_, err := h.orch.Submit(ctx, Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	require.NoError(t, h.orch.ResetDraft(ctx))

	assert.Nil(t, h.orch.Snapshot().Draft)
	_, found, _ := h.store.Get(ctx, DraftKey(userA))
	assert.False(t, found)
}

func TestSave(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.reply(chairDraft(), nil)
	_, err := h.orch.Submit(ctx, Input{Mode: listing.ModeImage, Image: photo})
	require.NoError(t, err)

	saved, err := h.orch.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", saved.Currency)

	require.Len(t, h.saver.inserted, 1)
	in := h.saver.inserted[0]
	assert.Equal(t, uuid.MustParse(userA), in.UserID)
	assert.Equal(t, chairDraft(), in.Draft)
	require.NotNil(t, in.ImageURL)
	assert.Equal(t, h.uploader.url, *in.ImageURL)
}

func TestSave_TextDraftHasNoImage(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.reply(phoneDraft(), nil)
	_, err := h.orch.Submit(ctx, Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	_, err = h.orch.Save(ctx)
	require.NoError(t, err)
	assert.Nil(t, h.saver.inserted[0].ImageURL)
}

func TestSave_Errors(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.orch.Save(ctx)
	assert.ErrorIs(t, err, ErrNoDraft)

	h.reply(phoneDraft(), nil)
	_, err = h.orch.Submit(ctx, Input{Mode: listing.ModeText, Text: phoneText})
	require.NoError(t, err)

	dbErr := errors.New("connection reset")
	h.saver.err = dbErr
	_, err = h.orch.Save(ctx)
	require.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to save listing")

	snap := h.orch.Snapshot()
	require.NotNil(t, snap.Draft)
	assert.Equal(t, phoneDraft(), *snap.Draft)
}
