package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modestanalytics/api/models"
)

type fakeOwners struct {
	owners []models.Owner
	err    error
}

func (f *fakeOwners) List(ctx context.Context) ([]models.Owner, error) {
	return f.owners, f.err
}

type fakeEvents struct {
	byOwner map[int][]models.Pageview
	errFor  map[int]error
}

func (f *fakeEvents) QueryWindow(ctx context.Context, ownerID int, start, end time.Time) ([]models.Pageview, error) {
	if err := f.errFor[ownerID]; err != nil {
		return nil, err
	}
	return f.byOwner[ownerID], nil
}

type sentMail struct {
	to      string
	subject string
	text    string
	html    string
}

type fakeMailer struct {
	failFor map[string]error
	sent    []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if err := f.failFor[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, text: textBody, html: htmlBody})
	return nil
}

func newTestDispatcher(owners *fakeOwners, events *fakeEvents, mailer *fakeMailer) *Dispatcher {
	return NewDispatcher(owners, events, mailer, zap.NewNop(), 7*24*time.Hour)
}

func TestDispatchAll_PerOwnerFailureIsolation(t *testing.T) {
	owners := &fakeOwners{owners: []models.Owner{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "b@example.com"},
	}}
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	events := &fakeEvents{byOwner: map[int][]models.Pageview{
		2: {{Domain: "b.com", Path: "/", Timestamp: now.Add(-time.Hour)}},
	}}
	mailer := &fakeMailer{failFor: map[string]error{
		"a@example.com": errors.New("smtp: mailbox unavailable"),
	}}

	d := newTestDispatcher(owners, events, mailer)

	assert.NotPanics(t, func() {
		d.DispatchAll(context.Background(), now)
	})

	// Owner B still got its digest despite A failing.
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "b@example.com", mailer.sent[0].to)
	assert.Equal(t, "Your weekly website stats", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].text, "b.com/")
}

func TestDispatchAll_QueryFailureDoesNotAbortBatch(t *testing.T) {
	owners := &fakeOwners{owners: []models.Owner{
		{ID: 1, Email: "a@example.com"},
		{ID: 2, Email: "b@example.com"},
	}}
	events := &fakeEvents{
		byOwner: map[int][]models.Pageview{},
		errFor:  map[int]error{1: errors.New("connection reset")},
	}
	mailer := &fakeMailer{}

	d := newTestDispatcher(owners, events, mailer)
	d.DispatchAll(context.Background(), time.Now())

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "b@example.com", mailer.sent[0].to)
}

func TestDispatchAll_SendsEmptyDigest(t *testing.T) {
	owners := &fakeOwners{owners: []models.Owner{{ID: 1, Email: "quiet@example.com"}}}
	events := &fakeEvents{byOwner: map[int][]models.Pageview{}}
	mailer := &fakeMailer{}

	d := newTestDispatcher(owners, events, mailer)
	d.DispatchAll(context.Background(), time.Now())

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].text, "Total pageviews (last 7 days): 0")
	assert.Contains(t, mailer.sent[0].html, "No data in the last 7 days")
}

func TestDispatchAll_UsesTrailingWindow(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	owners := &fakeOwners{owners: []models.Owner{{ID: 1, Email: "a@example.com"}}}
	events := &fakeEvents{byOwner: map[int][]models.Pageview{
		1: {
			{Domain: "a.com", Path: "/in", Timestamp: now.Add(-24 * time.Hour)},
			{Domain: "a.com", Path: "/old", Timestamp: now.Add(-8 * 24 * time.Hour)},
		},
	}}
	mailer := &fakeMailer{}

	d := newTestDispatcher(owners, events, mailer)
	d.DispatchAll(context.Background(), now)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].text, "a.com/in")
	assert.NotContains(t, mailer.sent[0].text, "a.com/old")
}

func TestDispatchAll_ListFailureSendsNothing(t *testing.T) {
	owners := &fakeOwners{err: errors.New("db down")}
	mailer := &fakeMailer{}

	d := newTestDispatcher(owners, &fakeEvents{}, mailer)

	assert.NotPanics(t, func() {
		d.DispatchAll(context.Background(), time.Now())
	})
	assert.Empty(t, mailer.sent)
}
