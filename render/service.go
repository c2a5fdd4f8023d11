package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/arpitWebvedant/E-signature-api/observability"
	"github.com/arpitWebvedant/E-signature-api/signdata"
	"github.com/arpitWebvedant/E-signature-api/source"
)

// DocumentStore returns a stored document with its sign data.
type DocumentStore interface {
	Document(ctx context.Context, id string) (source.Document, error)
}

// RosterProvider returns the current recipients of a document with their
// signing status.
type RosterProvider interface {
	Signers(ctx context.Context, documentID string) ([]signdata.Signer, error)
}

// SourceLoader resolves a document record to the original upload.
type SourceLoader interface {
	Load(ctx context.Context, r source.Record) ([]byte, error)
}

// Service renders stored documents by id.
type Service struct {
	Engine    *Engine
	Documents DocumentStore
	// Roster is optional. Without it the step 1 roster is used as stored.
	Roster  RosterProvider
	Sources SourceLoader
	Logger  observability.Logger
}

// RenderFinal renders the completed document with every signer's values.
func (s *Service) RenderFinal(ctx context.Context, documentID string) (*Output, error) {
	return s.render(ctx, documentID, "")
}

// RenderForSigner renders the copy sent to one signer.
func (s *Service) RenderForSigner(ctx context.Context, documentID, signerEmail string) (*Output, error) {
	return s.render(ctx, documentID, signerEmail)
}

func (s *Service) logger() observability.Logger {
	if s.Logger == nil {
		return observability.NopLogger{}
	}
	return s.Logger
}

func (s *Service) render(ctx context.Context, documentID, signerEmail string) (*Output, error) {
	doc, err := s.Documents.Document(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	if doc.SignData.Empty() {
		return nil, &Error{Kind: KindMissingSignData, DocumentID: documentID}
	}
	signers, err := s.roster(ctx, documentID, doc.SignData)
	if err != nil {
		return nil, err
	}
	src, err := s.Sources.Load(ctx, doc.Record)
	if err != nil {
		if errors.Is(err, source.ErrEmpty) || errors.Is(err, source.ErrUnknownKind) {
			return nil, &Error{Kind: KindInvalidSource, DocumentID: documentID, Err: err}
		}
		return nil, fmt.Errorf("load source of document %s: %w", documentID, err)
	}
	return s.Engine.Render(ctx, Request{
		DocumentID:  documentID,
		Source:      src,
		Format:      source.DetectFormat(doc.Record),
		SignData:    doc.SignData,
		Signers:     signers,
		SignerEmail: signerEmail,
	})
}

func (s *Service) roster(ctx context.Context, documentID string, sd signdata.SignData) ([]signdata.Signer, error) {
	stored, err := sd.Signers()
	if err != nil {
		return nil, &Error{Kind: KindMissingSignData, DocumentID: documentID, Err: err}
	}
	if s.Roster == nil {
		return stored, nil
	}
	recipients, err := s.Roster.Signers(ctx, documentID)
	if err != nil {
		s.logger().Warn("recipient roster unavailable, using stored roster",
			observability.String(observability.KeyDocumentID, documentID),
			observability.Error("error", err),
		)
		return stored, nil
	}
	return MergeRoster(stored, recipients), nil
}

// MergeRoster takes the order, names and colours of the stored roster and the
// signing status of recipients. Recipients missing from the stored roster
// are appended in their own order.
func MergeRoster(stored, recipients []signdata.Signer) []signdata.Signer {
	out := make([]signdata.Signer, 0, len(stored)+len(recipients))
	seen := make([]bool, len(recipients))
	for _, s := range stored {
		for i, r := range recipients {
			if seen[i] || !signdata.SameEmail(s.Email, r.Email) {
				continue
			}
			seen[i] = true
			if r.Status != "" {
				s.Status = r.Status
			}
			if s.Name == "" {
				s.Name = r.Name
			}
			if s.Color == "" {
				s.Color = r.Color
			}
			break
		}
		out = append(out, s)
	}
	for i, r := range recipients {
		if !seen[i] {
			out = append(out, r)
		}
	}
	return out
}
