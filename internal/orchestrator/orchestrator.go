// Package orchestrator runs the client side of listing generation: input checks,
// the session gate, uploads, calls to the generation service, and the working draft.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"
	"listing-generator/internal/listing"
	"listing-generator/internal/session"
)

var (
	ErrGenerationInFlight = errors.New("a generation is already in progress")
	ErrNoDraft            = errors.New("no draft to save")
	ErrNothingToRetry     = errors.New("no previous generation to retry")
	ErrNoUser             = errors.New("no signed-in user")
)

const (
	LoginPath            = "/login"
	DashboardPath        = "/dashboard"
	SessionExpiredNotice = "Please sign in again. Unsaved draft data was preserved."
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseUploading  Phase = "uploading"
	PhaseGenerating Phase = "generating"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// UploadError reports a failed image upload, distinct from a generation failure.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "Image upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SessionSource is the credential collaborator.
type SessionSource interface {
	Current(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// TokenValidator checks a bearer credential locally.
type TokenValidator interface {
	Validate(token string) (*session.Claims, error)
}

// Uploader is the object storage collaborator.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Generator calls the generation service. A rejected credential is reported
// as session.ErrSessionInvalidated.
type Generator interface {
	Generate(ctx context.Context, accessToken string, payload listing.Payload) (listing.Draft, error)
}

// ListingSaver is the insert side of the relational store.
type ListingSaver interface {
	InsertListing(ctx context.Context, in listing.NewListing) (*listing.Listing, error)
}

// Progress is the indicator shown while generating.
type Progress interface {
	Start()
	Stop()
}

// Redirect asks the caller to send the user to the sign-in flow.
type Redirect struct {
	Path     string
	ReturnTo string
	Notice   string
}

// URL renders the redirect as a path with query parameters.
func (r Redirect) URL() string {
	q := url.Values{}
	q.Set("redirect", r.ReturnTo)
	q.Set("notice", r.Notice)
	return r.Path + "?" + q.Encode()
}

type Deps struct {
	Sessions  SessionSource
	Validator TokenValidator
	Uploader  Uploader
	Generator Generator
	Listings  ListingSaver
	Store     KeyValueStore
	Progress  Progress
	// OnRedirect is called after a forced sign-out.
	OnRedirect func(Redirect)
	Logger     zerolog.Logger
}

// Snapshot is a copy of the orchestrator state.
type Snapshot struct {
	Phase         Phase
	Mode          listing.Mode
	RawInput      string
	Draft         *listing.Draft
	DraftImageURL *string
	LastPayload   *listing.Payload
	InFlight      bool
	LastError     error
	UserID        string
}

type noProgress struct{}

func (noProgress) Start() {}
func (noProgress) Stop()  {}

// Orchestrator serializes generation attempts and owns the working draft.
// Its lock is never held across I/O.
type Orchestrator struct {
	deps   Deps
	drafts draftStore
	logger zerolog.Logger

	mu            sync.Mutex
	phase         Phase
	mode          listing.Mode
	rawInput      string
	draft         *listing.Draft
	draftImageURL *string
	lastPayload   *listing.Payload
	inFlight      bool
	lastErr       error
	userID        string
}

func New(deps Deps) *Orchestrator {
	if deps.Progress == nil {
		deps.Progress = noProgress{}
	}
	return &Orchestrator{
		deps:   deps,
		drafts: draftStore{kv: deps.Store},
		logger: deps.Logger,
		phase:  PhaseIdle,
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		Phase:     o.phase,
		Mode:      o.mode,
		RawInput:  o.rawInput,
		InFlight:  o.inFlight,
		LastError: o.lastErr,
		UserID:    o.userID,
	}
	if o.draft != nil {
		d := *o.draft
		d.BulletPoints = append([]string(nil), o.draft.BulletPoints...)
		s.Draft = &d
	}
	if o.draftImageURL != nil {
		u := *o.draftImageURL
		s.DraftImageURL = &u
	}
	if o.lastPayload != nil {
		p := *o.lastPayload
		s.LastPayload = &p
	}
	return s
}

// Load passes the session gate and restores the signed-in user's stored draft.
func (o *Orchestrator) Load(ctx context.Context) error {
	_, userID, err := o.authorize(ctx)
	if err != nil {
		return err
	}
	return o.restore(ctx, userID)
}

func (o *Orchestrator) restore(ctx context.Context, userID string) error {
	stored, err := o.drafts.load(ctx, userID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.userID = userID
	o.draft, o.draftImageURL = nil, nil
	if stored != nil {
		d := stored.Draft
		o.draft = &d
		o.draftImageURL = stored.ImageURL
	}
	return nil
}

// Submit validates the input, uploads an image when needed, and generates a draft.
// A call made while another attempt is running returns ErrGenerationInFlight and
// changes nothing.
func (o *Orchestrator) Submit(ctx context.Context, in Input) (listing.Draft, error) {
	if !o.begin() {
		return listing.Draft{}, ErrGenerationInFlight
	}
	defer o.end()

	o.mu.Lock()
	o.phase = PhaseValidating
	o.mode = in.Mode
	o.rawInput = in.Text
	if in.Image != nil {
		o.rawInput = in.Image.Name
	}
	o.lastErr = nil
	o.mu.Unlock()

	if err := in.Validate(); err != nil {
		return listing.Draft{}, o.fail(err)
	}

	token, userID, err := o.authorize(ctx)
	if err != nil {
		return listing.Draft{}, o.fail(err)
	}

	// The indicator covers the upload as well as the generation call.
	o.deps.Progress.Start()

	payload := listing.NewTextPayload(in.Text)
	if in.Mode == listing.ModeImage {
		o.setPhase(PhaseUploading)
		publicURL, err := o.deps.Uploader.Upload(ctx, ObjectPath(userID, in.Image.Name), in.Image.Data, in.Image.ContentType)
		if err != nil {
			o.deps.Progress.Stop()
			if errors.Is(err, session.ErrSessionInvalidated) {
				return listing.Draft{}, o.fail(o.invalidate(ctx, err))
			}
			return listing.Draft{}, o.fail(&UploadError{Err: err})
		}
		payload = listing.NewImagePayload(publicURL)
	}

	return o.attempt(ctx, token, userID, payload)
}

// Retry resubmits the payload recorded before the last attempt.
func (o *Orchestrator) Retry(ctx context.Context) (listing.Draft, error) {
	if !o.begin() {
		return listing.Draft{}, ErrGenerationInFlight
	}
	defer o.end()

	o.mu.Lock()
	last := o.lastPayload
	o.mu.Unlock()
	if last == nil {
		return listing.Draft{}, ErrNothingToRetry
	}
	payload := *last

	o.mu.Lock()
	o.phase = PhaseValidating
	o.lastErr = nil
	o.mu.Unlock()

	token, userID, err := o.authorize(ctx)
	if err != nil {
		return listing.Draft{}, o.fail(err)
	}
	o.deps.Progress.Start()
	return o.attempt(ctx, token, userID, payload)
}

// attempt runs one generation call. The caller has started the progress indicator;
// attempt stops it once the call resolves.
func (o *Orchestrator) attempt(ctx context.Context, token, userID string, payload listing.Payload) (listing.Draft, error) {
	o.mu.Lock()
	recorded := payload
	o.lastPayload = &recorded
	o.phase = PhaseGenerating
	o.mu.Unlock()

	draft, err := o.deps.Generator.Generate(ctx, token, payload)
	o.deps.Progress.Stop()

	if err != nil {
		if errors.Is(err, session.ErrSessionInvalidated) {
			return listing.Draft{}, o.fail(o.invalidate(ctx, err))
		}
		o.logger.Warn().Err(err).Str("mode", string(payload.Mode)).Msg("generation failed")
		return listing.Draft{}, o.fail(err)
	}

	var imageURL *string
	if payload.Mode == listing.ModeImage {
		u := payload.ImageURL
		imageURL = &u
	}

	o.mu.Lock()
	d := draft
	o.draft = &d
	o.draftImageURL = imageURL
	o.phase = PhaseSucceeded
	o.userID = userID
	o.mu.Unlock()

	if err := o.drafts.save(ctx, userID, storedDraft{Draft: draft, ImageURL: imageURL}); err != nil {
		o.logger.Error().Err(err).Msg("failed to persist generated draft")
	}
	return draft, nil
}

// UpdateDraft merges a manual edit into the draft. The result must still be a valid
// draft; otherwise nothing changes.
func (o *Orchestrator) UpdateDraft(ctx context.Context, patch listing.Patch) (listing.Draft, error) {
	o.mu.Lock()
	if o.draft == nil {
		o.mu.Unlock()
		return listing.Draft{}, ErrNoDraft
	}
	if o.userID == "" {
		o.mu.Unlock()
		return listing.Draft{}, ErrNoUser
	}
	next := o.draft.Apply(patch).Normalize()
	if err := next.Validate(); err != nil {
		o.mu.Unlock()
		return listing.Draft{}, err
	}
	o.draft = &next
	userID, imageURL := o.userID, o.draftImageURL
	o.mu.Unlock()

	if err := o.drafts.save(ctx, userID, storedDraft{Draft: next, ImageURL: imageURL}); err != nil {
		return next, err
	}
	return next, nil
}

// ResetDraft discards the draft and its stored copy.
func (o *Orchestrator) ResetDraft(ctx context.Context) error {
	o.mu.Lock()
	userID := o.userID
	o.draft = nil
	o.draftImageURL = nil
	o.mu.Unlock()

	if userID == "" {
		return nil
	}
	return o.drafts.clear(ctx, userID)
}

// Save inserts the current draft into the relational store. Failures leave the
// draft untouched.
func (o *Orchestrator) Save(ctx context.Context) (*listing.Listing, error) {
	o.mu.Lock()
	if o.draft == nil {
		o.mu.Unlock()
		return nil, ErrNoDraft
	}
	draft := *o.draft
	var imageURL *string
	if o.draftImageURL != nil {
		u := *o.draftImageURL
		imageURL = &u
	}
	o.mu.Unlock()

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}

	_, userID, err := o.authorize(ctx)
	if err != nil {
		return nil, err
	}
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}

	saved, err := o.deps.Listings.InsertListing(ctx, listing.NewListing{
		UserID:   uid,
		Draft:    draft.Normalize(),
		ImageURL: imageURL,
		Currency: listing.DefaultCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save listing: %w", err)
	}
	return saved, nil
}

// SignOut ends the session voluntarily. The stored draft is kept.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	err := o.deps.Sessions.SignOut(ctx)

	o.mu.Lock()
	o.userID = ""
	o.draft = nil
	o.draftImageURL = nil
	o.lastPayload = nil
	o.phase = PhaseIdle
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return false
	}
	o.inFlight = true
	return true
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	o.phase = PhaseFailed
	o.lastErr = err
	o.mu.Unlock()
	return err
}
