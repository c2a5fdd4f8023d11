package certificate

import (
	"context"
	"time"

	"github.com/arpitWebvedant/E-signature-api/signdata"
)

// TimestampLayout is the UTC ISO-8601 form printed on certificate pages.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamps are the audit times shown for one signer. Zero values are left
// blank.
type Timestamps struct {
	Sent   time.Time
	Viewed time.Time
	Signed time.Time
}

func (Timestamps) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// TimestampSource looks up the audit times for a signer of a document.
type TimestampSource interface {
	Timestamps(ctx context.Context, documentID string, signer signdata.Signer) (Timestamps, error)
}

// ClockSource stamps every event with the current time. It stands in when no
// audit trail is available.
type ClockSource struct {
	Now func() time.Time
}

func (c ClockSource) Timestamps(ctx context.Context, _ string, _ signdata.Signer) (Timestamps, error) {
	if err := ctx.Err(); err != nil {
		return Timestamps{}, err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	t := now()
	return Timestamps{Sent: t, Viewed: t, Signed: t}, nil
}

// TimestampFunc adapts a function to TimestampSource.
type TimestampFunc func(ctx context.Context, documentID string, signer signdata.Signer) (Timestamps, error)

func (f TimestampFunc) Timestamps(ctx context.Context, documentID string, signer signdata.Signer) (Timestamps, error) {
	return f(ctx, documentID, signer)
}
