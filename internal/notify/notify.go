// Package notify tells moderators about submissions and publishes listing
// lifecycle events. Delivery is best effort: failures are logged and never
// reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "directory-engine/internal/common/aws"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/listing"
)

const (
	EventListingCreated       = "listing.created"
	EventListingStatusChanged = "listing.status_changed"
)

type Config struct {
	FromEmail  string
	Moderators []string
	TopicARN   string
}

// Event is the SNS message body.
type Event struct {
	Type        string    `json:"type"`
	ListingID   string    `json:"listingId"`
	DirectoryID string    `json:"directoryId"`
	Status      string    `json:"status"`
	Previous    string    `json:"previous,omitempty"`
	ActorID     string    `json:"actorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Notifier sends mail through SES and events through SNS. Either client may
// be nil to disable that channel.
type Notifier struct {
	mail   commonaws.SESAPI
	events commonaws.SNSAPI
	cfg    Config
	logger logger.Logger
	now    func() time.Time
}

func New(mail commonaws.SESAPI, events commonaws.SNSAPI, cfg Config, log logger.Logger) *Notifier {
	return &Notifier{
		mail:   mail,
		events: events,
		cfg:    cfg,
		logger: logger.Component(log, "notifier"),
		now:    time.Now,
	}
}

// ListingCreated publishes a creation event and, for pending listings,
// emails the moderators.
func (n *Notifier) ListingCreated(ctx context.Context, dir *listing.Directory, l *listing.Listing) {
	n.publish(ctx, Event{
		Type:        EventListingCreated,
		ListingID:   l.ID,
		DirectoryID: l.DirectoryID,
		Status:      l.Status.String(),
		ActorID:     l.SubmitterID,
	})
	if l.Status == listing.StatusPending {
		n.emailModerators(ctx, dir, l)
	}
}

func (n *Notifier) StatusChanged(ctx context.Context, l *listing.Listing, previous listing.Status, actorID string) {
	n.publish(ctx, Event{
		Type:        EventListingStatusChanged,
		ListingID:   l.ID,
		DirectoryID: l.DirectoryID,
		Status:      l.Status.String(),
		Previous:    previous.String(),
		ActorID:     actorID,
	})
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	if n.events == nil || n.cfg.TopicARN == "" {
		return
	}
	ev.OccurredAt = n.now().UTC()

	body, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("failed to encode event", map[string]interface{}{"type": ev.Type, "error": err})
		return
	}

	_, err = n.events.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(ev.Type)},
		},
	})
	if err != nil {
		n.logger.Warn("failed to publish listing event", map[string]interface{}{
			"type":      ev.Type,
			"listingId": ev.ListingID,
			"error":     err,
		})
	}
}

func (n *Notifier) emailModerators(ctx context.Context, dir *listing.Directory, l *listing.Listing) {
	if n.mail == nil || len(n.cfg.Moderators) == 0 || n.cfg.FromEmail == "" {
		return
	}

	subject, body := reviewEmail(dir, l)
	_, err := n.mail.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{ToAddresses: n.cfg.Moderators},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.FromEmail),
	})
	if err != nil {
		n.logger.Warn("failed to email moderators", map[string]interface{}{
			"listingId": l.ID,
			"error":     err,
		})
		return
	}
	n.logger.Info("moderators notified", map[string]interface{}{
		"listingId":  l.ID,
		"recipients": len(n.cfg.Moderators),
	})
}

func reviewEmail(dir *listing.Directory, l *listing.Listing) (string, string) {
	dirName := l.DirectoryID
	if dir != nil && dir.Name != "" {
		dirName = dir.Name
	}

	entity := "a new entry"
	if v, ok := l.Payload["name"]; ok {
		if s, isStr := v.Str(); isStr && strings.TrimSpace(s) != "" {
			entity = s
		}
	}

	subject := fmt.Sprintf("Listing awaiting review in %s", dirName)
	body := fmt.Sprintf("%s was submitted to %s and is waiting for moderation.\n\nListing: %s\nSubmitted by: %s\n",
		entity, dirName, l.ID, l.SubmitterID)
	return subject, body
}
