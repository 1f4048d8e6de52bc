package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"directory-engine/internal/common/logger"
	"directory-engine/internal/listing"
	"directory-engine/internal/schema"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &ses.SendEmailOutput{}, f.err
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

var testCfg = Config{
	FromEmail:  "noreply@directory.test",
	Moderators: []string{"mod@directory.test"},
	TopicARN:   "arn:aws:sns:us-east-1:000000000000:listings",
}

func pendingListing() *listing.Listing {
	return &listing.Listing{
		ID:          "l-1",
		DirectoryID: "dir-1",
		SubmitterID: "user-1",
		Status:      listing.StatusPending,
		Payload:     schema.Payload{"name": schema.String("Acme Corp")},
	}
}

func TestListingCreated_Pending(t *testing.T) {
	mail, events := &fakeSES{}, &fakeSNS{}
	n := New(mail, events, testCfg, logger.NewTestLogger(t))
	n.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	n.ListingCreated(context.Background(), &listing.Directory{ID: "dir-1", Name: "Tech Companies"}, pendingListing())

	require.Len(t, mail.inputs, 1)
	assert.Equal(t, []string{"mod@directory.test"}, mail.inputs[0].Destination.ToAddresses)
	assert.Equal(t, "Listing awaiting review in Tech Companies", *mail.inputs[0].Message.Subject.Data)
	assert.Contains(t, *mail.inputs[0].Message.Body.Text.Data, "Acme Corp")

	require.Len(t, events.inputs, 1)
	assert.Equal(t, testCfg.TopicARN, *events.inputs[0].TopicArn)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(*events.inputs[0].Message), &ev))
	assert.Equal(t, EventListingCreated, ev.Type)
	assert.Equal(t, "pending", ev.Status)
	assert.Equal(t, EventListingCreated, *events.inputs[0].MessageAttributes["eventType"].StringValue)
}

func TestListingCreated_ApprovedSkipsEmail(t *testing.T) {
	mail, events := &fakeSES{}, &fakeSNS{}
	n := New(mail, events, testCfg, logger.NewNoOpLogger())

	l := pendingListing()
	l.Status = listing.StatusApproved
	n.ListingCreated(context.Background(), nil, l)

	assert.Empty(t, mail.inputs)
	assert.Len(t, events.inputs, 1)
}

func TestStatusChanged(t *testing.T) {
	events := &fakeSNS{}
	n := New(nil, events, testCfg, logger.NewNoOpLogger())

	l := pendingListing()
	l.Status = listing.StatusRejected
	n.StatusChanged(context.Background(), l, listing.StatusPending, "admin-1")

	require.Len(t, events.inputs, 1)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(*events.inputs[0].Message), &ev))
	assert.Equal(t, EventListingStatusChanged, ev.Type)
	assert.Equal(t, "pending", ev.Previous)
	assert.Equal(t, "rejected", ev.Status)
	assert.Equal(t, "admin-1", ev.ActorID)
}

func TestDeliveryFailuresAreSwallowed(t *testing.T) {
	mail := &fakeSES{err: errors.New("throttled")}
	events := &fakeSNS{err: errors.New("throttled")}
	n := New(mail, events, testCfg, logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		n.ListingCreated(context.Background(), nil, pendingListing())
	})
	assert.Len(t, mail.inputs, 1)
	assert.Len(t, events.inputs, 1)
}

func TestDisabledChannels(t *testing.T) {
	n := New(nil, nil, Config{}, logger.NewNoOpLogger())
	assert.NotPanics(t, func() {
		n.ListingCreated(context.Background(), nil, pendingListing())
		n.StatusChanged(context.Background(), pendingListing(), listing.StatusPending, "a")
	})

	mail := &fakeSES{}
	New(mail, nil, Config{FromEmail: "x@y.z"}, logger.NewNoOpLogger()).
		ListingCreated(context.Background(), nil, pendingListing())
	assert.Empty(t, mail.inputs, "no moderators configured")
}

func TestReviewEmail_Fallbacks(t *testing.T) {
	l := pendingListing()
	l.Payload = schema.Payload{}
	subject, body := reviewEmail(nil, l)
	assert.Equal(t, "Listing awaiting review in dir-1", subject)
	assert.Contains(t, body, "a new entry")
}
