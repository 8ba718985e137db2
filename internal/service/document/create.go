package document

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/quarryhq/quarry/internal/domain"
)

// Create writes a new document and returns its live entity. The id may be
// empty, in which case one is generated. Fails with domain.ErrAlreadyExists
// when the id is taken and opts.Overwrite is false.
//
// _meta is populated here: version 1, created == updated, the author, the
// kind's default metaId, and the caller-supplied ACL merged over the kind
// and engine defaults.
func (s *Service) Create(ctx context.Context, authorID, domainID, collectionID, docID string, data map[string]any, opts CreateOptions) (*Entity, error) {
	collectionID = s.kind.collection(collectionID)
	if docID == "" {
		docID = uuid.NewString()
	}

	state, err := s.seal(authorID, docID, data)
	if err != nil {
		return nil, err
	}

	kind := domain.OpCreateSnapshot
	if opts.Overwrite {
		kind = domain.OpIndexSnapshot
	}
	op := domain.BulkOp{
		Kind:    kind,
		Index:   domain.HotAlias(domainID, collectionID),
		ID:      docID,
		Version: 1,
		Doc:     state,
	}
	if err := s.gw.BulkWrite(ctx, []domain.BulkOp{op}); err != nil {
		return nil, err
	}

	e, err := newEntity(s, domainID, collectionID, docID, state)
	if err != nil {
		return nil, err
	}
	s.cache.Set(e.uniqueID(), e)

	s.log.Debug("document created",
		slog.String("domain", domainID),
		slog.String("collection", collectionID),
		slog.String("id", docID),
	)
	return e, nil
}

// seal turns caller data into the canonical version-1 state.
func (s *Service) seal(authorID, docID string, data map[string]any) ([]byte, error) {
	doc := make(map[string]any, len(data)+2)
	for k, v := range data {
		doc[k] = v
	}
	doc["id"] = docID

	// Caller-supplied _meta only contributes acl and metaId; everything else
	// is authoritative here.
	var suppliedACL domain.ACL
	metaID := s.kind.DefaultMetaID
	if raw, ok := doc[domain.MetaKey]; ok {
		buf, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode supplied _meta: %w", err)
		}
		var supplied domain.Meta
		if err := json.Unmarshal(buf, &supplied); err != nil {
			return nil, fmt.Errorf("%w: malformed _meta", domain.ErrPatchValidation)
		}
		suppliedACL = supplied.ACL
		if supplied.MetaID != "" {
			metaID = supplied.MetaID
		}
	}

	now := s.now()
	meta := domain.Meta{
		Version: 1,
		Created: now,
		Updated: now,
		Author:  authorID,
		ACL:     suppliedACL.Merge(s.kind.DefaultACL).Merge(DefaultACL),
		MetaID:  metaID,
	}
	doc[domain.MetaKey] = meta

	state, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return state, nil
}
