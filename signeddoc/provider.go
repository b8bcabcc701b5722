package signeddoc

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
)

// ErrNotFound is returned by providers when a document or key does not
// exist. Anything else a provider returns is treated as a transport failure
// and aborts the operation in progress.
var ErrNotFound = errors.New("not found")

// Provider resolves document references and verification keys for the
// validation core. The core assumes neither caching nor ordering;
// implementations shared between validations must synchronize internally,
// and blocking calls must honor ctx.
type Provider interface {
	// GetDocument resolves a reference. A ref without a version resolves
	// to the latest known version of that id.
	GetDocument(ctx context.Context, ref DocumentRef) (*Document, error)
	// GetVerifyingKey resolves the Ed25519 public key for a signer.
	GetVerifyingKey(ctx context.Context, kid CatalystID) (ed25519.PublicKey, error)
}

// InMemoryProvider is a map-backed Provider for tests, tooling and demos.
type InMemoryProvider struct {
	mu     sync.RWMutex
	docs   map[DocumentRef]*Document
	latest map[UUIDv7]UUIDv7
	keys   map[string]ed25519.PublicKey
}

// NewInMemoryProvider constructs an empty provider.
func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{
		docs:   make(map[DocumentRef]*Document),
		latest: make(map[UUIDv7]UUIDv7),
		keys:   make(map[string]ed25519.PublicKey),
	}
}

// AddDocument registers a document under its exact (id, ver) and tracks the
// latest version per id.
func (p *InMemoryProvider) AddDocument(doc *Document) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := doc.Ref()
	p.docs[ref] = doc
	if cur, ok := p.latest[ref.ID]; !ok || ref.Ver.Compare(cur) > 0 {
		p.latest[ref.ID] = ref.Ver
	}
}

// RemoveDocument forgets one exact version; useful for withheld-reference
// test setups.
func (p *InMemoryProvider) RemoveDocument(ref DocumentRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.docs, ref)
	if p.latest[ref.ID] == ref.Ver {
		delete(p.latest, ref.ID)
		for r := range p.docs {
			if r.ID == ref.ID {
				if cur, ok := p.latest[ref.ID]; !ok || r.Ver.Compare(cur) > 0 {
					p.latest[ref.ID] = r.Ver
				}
			}
		}
	}
}

// AddKey registers a verification key for a signer identity.
func (p *InMemoryProvider) AddKey(kid CatalystID, key ed25519.PublicKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[kid.String()] = key
}

// GetDocument implements Provider.
func (p *InMemoryProvider) GetDocument(ctx context.Context, ref DocumentRef) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !ref.HasVer() {
		ver, ok := p.latest[ref.ID]
		if !ok {
			return nil, ErrNotFound
		}
		ref.Ver = ver
	}
	doc, ok := p.docs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// GetVerifyingKey implements Provider.
func (p *InMemoryProvider) GetVerifyingKey(ctx context.Context, kid CatalystID) (ed25519.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	key, ok := p.keys[kid.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return key, nil
}
