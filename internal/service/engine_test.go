package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-engine/internal/ai"
	apperrors "directory-engine/internal/common/errors"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
	"directory-engine/internal/search"
	"directory-engine/internal/store"
	"directory-engine/internal/synthesis"
)

type failingGenerator struct{ err error }

func (f failingGenerator) GenerateListingData(ctx context.Context, m *schema.Model, entityName, entityURL string) (schema.Payload, error) {
	return nil, f.err
}

func (f failingGenerator) SynthesizeSchema(ctx context.Context, in schema.Interview) (*schema.Model, error) {
	return nil, f.err
}

type cannedGenerator struct{ payload schema.Payload }

func (c cannedGenerator) GenerateListingData(ctx context.Context, m *schema.Model, entityName, entityURL string) (schema.Payload, error) {
	return c.payload, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []*listing.Listing
	changed []listing.Status
}

func (r *recordingNotifier) ListingCreated(ctx context.Context, dir *listing.Directory, l *listing.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, l)
}

func (r *recordingNotifier) StatusChanged(ctx context.Context, l *listing.Listing, previous listing.Status, actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, l.Status)
}

type recordingIndexer struct {
	synced  []*listing.Listing
	syncErr error
	results *search.Results
}

func (r *recordingIndexer) Sync(ctx context.Context, l *listing.Listing) error {
	r.synced = append(r.synced, l)
	return r.syncErr
}

func (r *recordingIndexer) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	return r.results, nil
}

func companiesDirectory() *listing.Directory {
	return &listing.Directory{
		ID:      "dir-1",
		Name:    "Tech Companies",
		OwnerID: "owner-1",
		Schema: schema.MustNew("tech companies", []schema.FieldSpec{
			{Name: "name", Type: schema.TypeString},
			{Name: "industry", Type: schema.TypeString},
			{Name: "website", Type: schema.TypeString, Format: schema.FormatURI},
			{Name: "founded_year", Type: schema.TypeInteger},
		}, []string{"name", "industry"}),
	}
}

type fixture struct {
	engine   *Engine
	store    *store.Memory
	notifier *recordingNotifier
	indexer  *recordingIndexer
}

func newFixture(t *testing.T, gen ListingGenerator) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	mem := store.NewMemory(companiesDirectory())
	notifier := &recordingNotifier{}
	indexer := &recordingIndexer{}
	unavailable := failingGenerator{err: ai.ErrGenerationUnavailable}

	engine := New(mem, synthesis.New(unavailable, nil, log), gen, log,
		WithNotifier(notifier),
		WithIndexer(indexer),
	)
	return &fixture{engine: engine, store: mem, notifier: notifier, indexer: indexer}
}

func codeOf(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "got %T", err)
	return stdErr.Code
}

func validPayload() schema.Payload {
	return schema.Payload{"name": schema.String("Acme"), "industry": schema.String("Tech")}
}

func TestGenerateSchema_ScenarioA(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.engine.GenerateSchema(context.Background(), schema.Interview{
		DirectoryType:  "tech companies",
		RequiredFields: "name, website",
		OptionalFields: "description",
	})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, []string{"name", "website"}, resp.Schema.Required())
	nameField, ok := resp.Schema.Field("name")
	require.True(t, ok)
	assert.Equal(t, schema.TypeString, nameField.Type)
	assert.Contains(t, resp.Sample, "website")
}

func TestGenerateSchema_RequiresDirectoryType(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.GenerateSchema(context.Background(), schema.Interview{RequiredFields: "name"})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))
}

func TestAutofill_ScenarioE_TimeoutFallsBack(t *testing.T) {
	f := newFixture(t, failingGenerator{err: ai.ErrTimeout})

	resp, err := f.engine.AutofillListing(context.Background(), AutofillRequest{
		DirectoryID: "dir-1",
		EntityName:  "Acme Corp",
	})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)

	name, _ := resp.Payload["name"].Str()
	assert.Equal(t, "Acme Corp", name)
	website, _ := resp.Payload["website"].Str()
	assert.Regexp(t, regexp.MustCompile(`^https://www\.acmecorp\.com$`), website)
	year, _ := resp.Payload["founded_year"].Num()
	assert.Equal(t, float64(2010), year)
}

func TestAutofill_UsesModelOutput(t *testing.T) {
	gen := cannedGenerator{payload: schema.Payload{
		"name":     schema.String("Acme Corp"),
		"industry": schema.String("Aerospace"),
	}}
	f := newFixture(t, gen)

	resp, err := f.engine.AutofillListing(context.Background(), AutofillRequest{DirectoryID: "dir-1", EntityName: "Acme Corp"})
	require.NoError(t, err)
	assert.False(t, resp.Fallback)
	industry, _ := resp.Payload["industry"].Str()
	assert.Equal(t, "Aerospace", industry)
}

func TestAutofill_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.AutofillListing(ctx, AutofillRequest{DirectoryID: "dir-1", EntityName: "  "})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))

	_, err = f.engine.AutofillListing(ctx, AutofillRequest{EntityName: "Acme"})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))

	_, err = f.engine.AutofillListing(ctx, AutofillRequest{DirectoryID: "missing", EntityName: "Acme"})
	assert.Equal(t, apperrors.ErrCodeNotFound, codeOf(t, err))
}

func TestCreateListing_ScenarioB_ValidationFailed(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.CreateListing(context.Background(), identity.User("owner-1"), CreateListingRequest{
		DirectoryID: "dir-1",
		Payload:     schema.Payload{"name": schema.String("Acme")},
	})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeValidationFailed, stdErr.Code)
	assert.Equal(t, "industry", stdErr.Metadata["field"])
	assert.Empty(t, f.notifier.created, "nothing stored or announced")
}

func TestCreateListing_StatusDecision(t *testing.T) {
	tests := []struct {
		name   string
		actor  identity.Identity
		status listing.Status
	}{
		{"scenario C owner", identity.User("owner-1"), listing.StatusApproved},
		{"scenario D stranger", identity.User("someone"), listing.StatusPending},
		{"admin", identity.Admin("root"), listing.StatusApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			created, err := f.engine.CreateListing(context.Background(), tt.actor, CreateListingRequest{
				DirectoryID: "dir-1",
				Payload:     validPayload(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, created.Status)
			assert.Equal(t, tt.actor.UserID, created.SubmitterID)
			assert.NotEmpty(t, created.ID)

			stored, err := f.store.GetListing(context.Background(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)

			require.Len(t, f.notifier.created, 1)
			require.Len(t, f.indexer.synced, 1)
		})
	}
}

func TestCreateListing_CoercesAndKeepsExtraFields(t *testing.T) {
	f := newFixture(t, nil)
	payload := validPayload()
	payload["founded_year"] = schema.String("1999")
	payload["ceo"] = schema.String("Ada")

	created, err := f.engine.CreateListing(context.Background(), identity.User("owner-1"), CreateListingRequest{
		DirectoryID: "dir-1",
		Payload:     payload,
	})
	require.NoError(t, err)
	year, ok := created.Payload["founded_year"].Num()
	require.True(t, ok)
	assert.Equal(t, float64(1999), year)
	ceo, _ := created.Payload["ceo"].Str()
	assert.Equal(t, "Ada", ceo)
}

func TestCreateListing_KeepsUncoercibleOptionalValue(t *testing.T) {
	f := newFixture(t, nil)
	payload := validPayload()
	payload["founded_year"] = schema.String("circa 1999")

	created, err := f.engine.CreateListing(context.Background(), identity.User("owner-1"), CreateListingRequest{
		DirectoryID: "dir-1",
		Payload:     payload,
	})
	require.NoError(t, err)
	year, ok := created.Payload["founded_year"].Str()
	require.True(t, ok)
	assert.Equal(t, "circa 1999", year)
	assert.Equal(t, listing.StatusApproved, created.Status)
}

func schemalessEngine(t *testing.T, gen ListingGenerator) *Engine {
	t.Helper()
	log := logger.NewTestLogger(t)
	mem := store.NewMemory(&listing.Directory{ID: "d0", OwnerID: "owner-0"})
	return New(mem, synthesis.New(nil, nil, log), gen, log)
}

func TestAutofill_DirectoryWithoutSchema(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		engine := schemalessEngine(t, failingGenerator{err: ai.ErrGenerationUnavailable})

		resp, err := engine.AutofillListing(context.Background(), AutofillRequest{DirectoryID: "d0", EntityName: "Acme"})
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
		name, _ := resp.Payload["name"].Str()
		assert.Equal(t, "Acme", name)
	})

	t.Run("unavailable gateway", func(t *testing.T) {
		engine := schemalessEngine(t, ai.NewUnavailable(logger.NewNoOpLogger()))

		resp, err := engine.AutofillListing(context.Background(), AutofillRequest{DirectoryID: "d0", EntityName: "Acme"})
		require.NoError(t, err)
		assert.True(t, resp.Fallback)
	})
}

func TestCreateListing_DirectoryWithoutSchema(t *testing.T) {
	engine := schemalessEngine(t, nil)

	created, err := engine.CreateListing(context.Background(), identity.User("someone"), CreateListingRequest{
		DirectoryID: "d0",
		Payload:     schema.Payload{"anything": schema.Int(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, listing.StatusPending, created.Status)
}

type blockingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (b *blockingNotifier) wait(ctx context.Context) {
	<-ctx.Done()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, ctx.Err())
}

func (b *blockingNotifier) ListingCreated(ctx context.Context, dir *listing.Directory, l *listing.Listing) {
	b.wait(ctx)
}

func (b *blockingNotifier) StatusChanged(ctx context.Context, l *listing.Listing, previous listing.Status, actorID string) {
	b.wait(ctx)
}

func TestNotifiers_AreBoundedByTimeout(t *testing.T) {
	log := logger.NewTestLogger(t)
	slow := &blockingNotifier{}
	after := &recordingNotifier{}
	engine := New(store.NewMemory(companiesDirectory()), synthesis.New(nil, nil, log), nil, log,
		WithNotifier(slow),
		WithNotifier(after),
		WithNotifyTimeout(20*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	created, err := engine.CreateListing(ctx, identity.User("someone"), CreateListingRequest{
		DirectoryID: "dir-1",
		Payload:     validPayload(),
	})
	cancel()
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err = engine.SetListingStatus(context.Background(), identity.Admin("admin-1"), created.ID, "approved")
	require.NoError(t, err)

	assert.Equal(t, []error{context.DeadlineExceeded, context.DeadlineExceeded}, slow.errs)
	assert.Len(t, after.created, 1, "later notifiers still run")
	assert.Equal(t, []listing.Status{listing.StatusApproved}, after.changed)
}

func TestCreateListing_RequestErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.CreateListing(ctx, identity.User("u"), CreateListingRequest{DirectoryID: "dir-1"})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))

	_, err = f.engine.CreateListing(ctx, identity.Identity{}, CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	assert.Equal(t, apperrors.ErrCodeUnauthenticated, codeOf(t, err))

	_, err = f.engine.CreateListing(ctx, identity.User("u"), CreateListingRequest{DirectoryID: "nope", Payload: validPayload()})
	assert.Equal(t, apperrors.ErrCodeNotFound, codeOf(t, err))
}

func TestCreateListing_IndexFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, nil)
	f.indexer.syncErr = errors.New("cluster red")

	_, err := f.engine.CreateListing(context.Background(), identity.Admin("root"), CreateListingRequest{
		DirectoryID: "dir-1",
		Payload:     validPayload(),
	})
	assert.NoError(t, err)
}

func TestSetListingStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pending, err := f.engine.CreateListing(ctx, identity.User("someone"), CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	require.NoError(t, err)
	require.Equal(t, listing.StatusPending, pending.Status)

	resp, err := f.engine.SetListingStatus(ctx, identity.Admin("root"), pending.ID, "approved")
	require.NoError(t, err)
	assert.True(t, resp.Changed)
	assert.Equal(t, listing.StatusPending, resp.Previous)
	assert.Equal(t, listing.StatusApproved, resp.Listing.Status)

	again, err := f.engine.SetListingStatus(ctx, identity.Admin("root"), pending.ID, "APPROVED")
	require.NoError(t, err)
	assert.False(t, again.Changed)

	assert.Equal(t, []listing.Status{listing.StatusApproved}, f.notifier.changed)
	assert.Len(t, f.indexer.synced, 2, "creation plus one effective transition")
}

func TestSetListingStatus_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	created, err := f.engine.CreateListing(ctx, identity.User("someone"), CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	require.NoError(t, err)

	tests := []struct {
		name   string
		actor  identity.Identity
		id     string
		status string
		want   apperrors.ErrorCode
	}{
		{"missing status", identity.Admin("root"), created.ID, "", apperrors.ErrCodeInvalidRequest},
		{"pending not allowed", identity.Admin("root"), created.ID, "pending", apperrors.ErrCodeInvalidRequest},
		{"unknown status", identity.Admin("root"), created.ID, "archived", apperrors.ErrCodeInvalidRequest},
		{"anonymous", identity.Identity{}, created.ID, "approved", apperrors.ErrCodeUnauthenticated},
		{"owner is not admin", identity.User("owner-1"), created.ID, "approved", apperrors.ErrCodeForbidden},
		{"non admin on missing listing", identity.User("owner-1"), "missing", "approved", apperrors.ErrCodeForbidden},
		{"missing listing", identity.Admin("root"), "missing", "rejected", apperrors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.SetListingStatus(ctx, tt.actor, tt.id, tt.status)
			assert.Equal(t, tt.want, codeOf(t, err))
		})
	}
}

func TestGetListing_Visibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pending, err := f.engine.CreateListing(ctx, identity.User("submitter"), CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	require.NoError(t, err)

	for _, viewer := range []identity.Identity{identity.Admin("root"), identity.User("owner-1"), identity.User("submitter")} {
		got, err := f.engine.GetListing(ctx, viewer, pending.ID)
		require.NoError(t, err, viewer.UserID)
		assert.Equal(t, pending.ID, got.ID)
	}

	_, err = f.engine.GetListing(ctx, identity.User("stranger"), pending.ID)
	assert.Equal(t, apperrors.ErrCodeNotFound, codeOf(t, err), "hidden listings look absent")

	_, err = f.engine.SetListingStatus(ctx, identity.Admin("root"), pending.ID, "approved")
	require.NoError(t, err)
	got, err := f.engine.GetListing(ctx, identity.Identity{}, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.StatusApproved, got.Status)
}

func TestListListings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.CreateListing(ctx, identity.User("owner-1"), CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	require.NoError(t, err)
	_, err = f.engine.CreateListing(ctx, identity.User("someone"), CreateListingRequest{DirectoryID: "dir-1", Payload: validPayload()})
	require.NoError(t, err)

	all, err := f.engine.ListListings(ctx, identity.User("owner-1"), ListRequest{DirectoryID: "dir-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.engine.ListListings(ctx, identity.Admin("root"), ListRequest{DirectoryID: "dir-1", Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	public, err := f.engine.ListListings(ctx, identity.Identity{}, ListRequest{DirectoryID: "dir-1"})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, listing.StatusApproved, public[0].Status)

	hidden, err := f.engine.ListListings(ctx, identity.User("someone"), ListRequest{DirectoryID: "dir-1", Status: "pending"})
	require.NoError(t, err)
	assert.Empty(t, hidden)

	_, err = f.engine.ListListings(ctx, identity.Identity{}, ListRequest{DirectoryID: "dir-1", Status: "bogus"})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))
}

func TestSearchListings(t *testing.T) {
	f := newFixture(t, nil)
	f.indexer.results = &search.Results{Total: 1, Hits: []search.Hit{{ListingID: "l-1", Name: "Acme"}}}

	res, err := f.engine.SearchListings(context.Background(), SearchRequest{DirectoryID: "dir-1", Query: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	_, err = f.engine.SearchListings(context.Background(), SearchRequest{DirectoryID: "missing"})
	assert.Equal(t, apperrors.ErrCodeNotFound, codeOf(t, err))

	noSearch := New(f.store, synthesis.New(nil, nil, nil), nil, nil)
	_, err = noSearch.SearchListings(context.Background(), SearchRequest{DirectoryID: "dir-1"})
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, codeOf(t, err))
}
