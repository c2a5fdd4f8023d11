// Package store reads documents, their sign data, recipients and audit trail
// from the application's PostgreSQL database.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arpitWebvedant/E-signature-api/certificate"
	"github.com/arpitWebvedant/E-signature-api/signdata"
	"github.com/arpitWebvedant/E-signature-api/source"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens a pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store reads rendering inputs.
type Store struct {
	db Querier
}

func New(db Querier) *Store { return &Store{db: db} }

const documentQuery = `SELECT d.title, COALESCE(d."documentSignData"::text, ''),
	COALESCE(dd.type, ''), COALESCE(dd.data, ''), COALESCE(dd."fileType", ''), COALESCE(dd."initialData", '')
FROM "Document" d
LEFT JOIN "DocumentData" dd ON dd.id = d."documentDataId"
WHERE d.id = $1`

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return n, nil
}

// Document loads a document by id.
func (s *Store) Document(ctx context.Context, id string) (source.Document, error) {
	n, err := parseID(id)
	if err != nil {
		return source.Document{}, err
	}
	var (
		doc      = source.Document{ID: id}
		signData string
		kind     string
	)
	err = s.db.QueryRow(ctx, documentQuery, n).Scan(
		&doc.Title, &signData, &kind, &doc.Record.Data, &doc.Record.FileType, &doc.Record.InitialData,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return source.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return source.Document{}, fmt.Errorf("query document %s: %w", id, err)
	}
	doc.Record.Type = source.Kind(kind)
	doc.SignData, err = signdata.Parse([]byte(signData))
	if err != nil {
		return source.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return doc, nil
}

// UpdateSignData stores sign data for a document.
func (s *Store) UpdateSignData(ctx context.Context, id string, sd signdata.SignData) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE "Document" SET "documentSignData" = $2, "updatedAt" = now() WHERE id = $1`, n, sd)
	if err != nil {
		return fmt.Errorf("update sign data %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const recipientsQuery = `SELECT email, COALESCE(name, ''), COALESCE(color, ''), COALESCE("signingStatus", '')
FROM "Recipient" WHERE "documentId" = $1 ORDER BY id`

// Signers returns the recipients of a document in creation order with their
// signing status.
func (s *Store) Signers(ctx context.Context, documentID string) ([]signdata.Signer, error) {
	n, err := parseID(documentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, recipientsQuery, n)
	if err != nil {
		return nil, fmt.Errorf("query recipients %s: %w", documentID, err)
	}
	defer rows.Close()
	var out []signdata.Signer
	for rows.Next() {
		var sg signdata.Signer
		var status string
		if err := rows.Scan(&sg.Email, &sg.Name, &sg.Color, &status); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		sg.Status = recipientStatus(status)
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read recipients %s: %w", documentID, err)
	}
	return out, nil
}

// recipientStatus maps the Recipient signingStatus column onto the roster
// status. NOT_SIGNED and unknown values are pending.
func recipientStatus(s string) signdata.Status {
	switch st := signdata.Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case signdata.StatusSigned, signdata.StatusRejected:
		return st
	}
	return signdata.StatusPending
}

// Audit event types that map to certificate timestamps.
const (
	EventSent   = "EMAIL_SENT"
	EventViewed = "DOCUMENT_OPENED"
	EventSigned = "DOCUMENT_RECIPIENT_COMPLETED"
)

const auditQuery = `SELECT type, "createdAt" FROM "DocumentAuditLog"
WHERE "documentId" = $1 AND lower(email) = lower($2) AND type = ANY($3)
ORDER BY "createdAt"`

// Timestamps reads the first sent, viewed and signed events of a signer from
// the audit log. Missing events are left zero.
func (s *Store) Timestamps(ctx context.Context, documentID string, signer signdata.Signer) (certificate.Timestamps, error) {
	n, err := parseID(documentID)
	if err != nil {
		return certificate.Timestamps{}, err
	}
	rows, err := s.db.Query(ctx, auditQuery, n, strings.TrimSpace(signer.Email), []string{EventSent, EventViewed, EventSigned})
	if err != nil {
		return certificate.Timestamps{}, fmt.Errorf("query audit log %s: %w", documentID, err)
	}
	defer rows.Close()
	var ts certificate.Timestamps
	for rows.Next() {
		var kind string
		var at time.Time
		if err := rows.Scan(&kind, &at); err != nil {
			return certificate.Timestamps{}, fmt.Errorf("scan audit entry: %w", err)
		}
		var slot *time.Time
		switch kind {
		case EventSent:
			slot = &ts.Sent
		case EventViewed:
			slot = &ts.Viewed
		case EventSigned:
			slot = &ts.Signed
		}
		if slot != nil && slot.IsZero() {
			*slot = at
		}
	}
	if err := rows.Err(); err != nil {
		return certificate.Timestamps{}, fmt.Errorf("read audit log %s: %w", documentID, err)
	}
	return ts, nil
}
