//go:build unit || e2e

// Package memstore is an in-memory UnitOfWork for use case tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"offer-relay/internal/domain/offer"
	"offer-relay/internal/pkg/errs"
	"offer-relay/internal/usecase/shared"
)

type Store struct {
	mu     sync.Mutex
	offers map[string]*offer.Offer

	// FailWrites, when set, is returned by Within without running the callback.
	FailWrites error
	Writes     int
}

var (
	_ shared.UnitOfWork      = (*Store)(nil)
	_ shared.OfferRepository = (*repo)(nil)
)

func New(seed ...*offer.Offer) *Store {
	s := &Store{offers: make(map[string]*offer.Offer)}
	for _, o := range seed {
		s.offers[o.OfferID()] = clone(o)
	}
	return s
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	snapshot := make(map[string]*offer.Offer, len(s.offers))
	for k, v := range s.offers {
		snapshot[k] = v
	}
	if err := fn(ctx, &tx{repo: &repo{s: s}}); err != nil {
		s.offers = snapshot
		return err
	}
	s.Writes++
	return nil
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &tx{repo: &repo{s: s, readOnly: true}})
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offers)
}

// Get returns a copy of the stored offer, or nil.
func (s *Store) Get(offerID string) *offer.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[offerID]
	if !ok {
		return nil
	}
	return clone(o)
}

type tx struct {
	repo *repo
}

func (t *tx) Offers() shared.OfferRepository {
	return t.repo
}

type repo struct {
	s        *Store
	readOnly bool
}

func (r *repo) ExistingIDs(_ context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := r.s.offers[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *repo) InsertNew(_ context.Context, offers []*offer.Offer) (int, error) {
	if err := r.writable(); err != nil {
		return 0, err
	}
	n := 0
	for _, o := range offers {
		if _, ok := r.s.offers[o.OfferID()]; ok {
			continue
		}
		r.s.offers[o.OfferID()] = clone(o)
		n++
	}
	return n, nil
}

func (r *repo) FindByID(_ context.Context, offerID string) (*offer.Offer, error) {
	o, ok := r.s.offers[offerID]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", offerID, errs.ErrOfferNotFound)
	}
	return clone(o), nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, offerID string) (*offer.Offer, error) {
	if err := r.writable(); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, offerID)
}

func (r *repo) ListAlertCandidates(_ context.Context) ([]*offer.Offer, error) {
	return r.filter(func(o *offer.Offer) bool { return o.NeedsAlert() }), nil
}

func (r *repo) ListSurfaceable(_ context.Context, skuKey string) ([]*offer.Offer, error) {
	return r.filter(func(o *offer.Offer) bool {
		return o.IsOpen() && !o.Notification().Surfaced() && o.SKUKey() == skuKey
	}), nil
}

func (r *repo) List(_ context.Context, f shared.OfferFilter) ([]*offer.Offer, error) {
	out := r.filter(func(o *offer.Offer) bool {
		if f.State != nil && o.Response() != *f.State {
			return false
		}
		return f.SKU == "" || o.SKU() == f.SKU
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *repo) BackfillSKU(_ context.Context, itemID, sku string) (int, error) {
	if err := r.writable(); err != nil {
		return 0, err
	}
	n := 0
	for id, o := range r.s.offers {
		if o.ItemID() != itemID {
			continue
		}
		c := clone(o)
		if c.AttachSKU(sku) {
			r.s.offers[id] = c
			n++
		}
	}
	return n, nil
}

func (r *repo) SaveNotification(_ context.Context, o *offer.Offer) error {
	if err := r.writable(); err != nil {
		return err
	}
	cur, ok := r.s.offers[o.OfferID()]
	if !ok {
		return fmt.Errorf("offer %s: %w", o.OfferID(), errs.ErrOfferNotFound)
	}
	have, in := cur.Notification(), o.Notification()
	alertedAt := have.AlertedAt()
	if alertedAt == nil {
		alertedAt = in.AlertedAt()
	}
	surfaced, surfacedAt, ref := have.Surfaced(), have.SurfacedAt(), have.Surface()
	if in.Surfaced() {
		surfaced, surfacedAt, ref = true, in.SurfacedAt(), in.Surface()
	}
	ns := offer.ReconstructNotificationState(have.ChannelAlerted() || in.ChannelAlerted(), alertedAt, surfaced, surfacedAt, ref)
	r.s.offers[o.OfferID()] = offer.Reconstruct(cur.Draft(), ns, cur.Response(), cur.RespondedAt(), cur.ResponseNote())
	return nil
}

func (r *repo) SaveResponse(_ context.Context, o *offer.Offer) error {
	if err := r.writable(); err != nil {
		return err
	}
	cur, ok := r.s.offers[o.OfferID()]
	if !ok {
		return fmt.Errorf("offer %s: %w", o.OfferID(), errs.ErrOfferNotFound)
	}
	if !cur.IsOpen() {
		return offer.ErrAlreadyResolved
	}
	r.s.offers[o.OfferID()] = offer.Reconstruct(cur.Draft(), cur.Notification(), o.Response(), o.RespondedAt(), o.ResponseNote())
	return nil
}

func (r *repo) writable() error {
	if r.readOnly {
		return errs.New("write in read-only transaction")
	}
	return nil
}

func (r *repo) filter(keep func(*offer.Offer) bool) []*offer.Offer {
	var out []*offer.Offer
	for _, o := range r.s.offers {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FetchedOn().Equal(out[j].FetchedOn()) {
			return out[i].FetchedOn().Before(out[j].FetchedOn())
		}
		return out[i].OfferID() < out[j].OfferID()
	})
	return out
}

func clone(o *offer.Offer) *offer.Offer {
	return offer.Reconstruct(o.Draft(), o.Notification(), o.Response(), o.RespondedAt(), o.ResponseNote())
}
