package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/infra"
	"offer-relay/internal/infra/repository/converter"
	"offer-relay/internal/pkg/pgconv"
	"offer-relay/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by pgx.Tx and *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const pgOfferColumns = `offer_id, item_id, sku, sku_key, title, bin_price::text, bin_currency,
	buyer_user_id, buyer_message, offer_amount::text, offer_currency, quantity,
	expiration_display, expires_at, offer_type, status, fetched_on,
	channel_alerted, alerted_at, surfaced, surfaced_at, surface_channel_id, surface_message_id,
	response_state, responded_at, response_note`

const pgInsertOffer = `INSERT INTO offers
	(offer_id, item_id, sku, sku_key, title, bin_price, bin_currency,
	 buyer_user_id, buyer_message, offer_amount, offer_currency, quantity,
	 expiration_display, expires_at, offer_type, status, fetched_on)
	VALUES ($1,$2,$3,$4,$5,$6::text::numeric,$7,$8,$9,$10::text::numeric,$11,$12,$13,$14,$15,$16,$17)
	ON CONFLICT (offer_id) DO NOTHING`

const insertBatchSize = 200

type PostgresOfferRepository struct {
	db     DBTX
	loc    *time.Location
	logger *slog.Logger
}

var _ shared.OfferRepository = (*PostgresOfferRepository)(nil)

func NewPostgresOfferRepository(db DBTX, loc *time.Location, logger *slog.Logger) *PostgresOfferRepository {
	return &PostgresOfferRepository{db: db, loc: loc, logger: logger}
}

func (r *PostgresOfferRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT offer_id FROM offers WHERE offer_id = ANY($1)`, ids)
	if err != nil {
		return nil, r.wrap("failed to load existing offer ids", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.wrap("failed to scan offer id", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("failed to iterate offer ids", err)
	}
	return out, nil
}

func (r *PostgresOfferRepository) InsertNew(ctx context.Context, offers []*offer.Offer) (int, error) {
	total := 0
	for i := 0; i < len(offers); i += insertBatchSize {
		j := min(i+insertBatchSize, len(offers))
		b := &pgx.Batch{}
		count := 0
		for _, o := range offers[i:j] {
			if o == nil {
				continue
			}
			row := converter.OfferToRow(o)
			b.Queue(pgInsertOffer,
				row.OfferID, row.ItemID, row.SKU, row.SKUKey, row.Title, row.BINPrice, row.BINCurrency,
				row.BuyerUserID, row.BuyerMessage, row.OfferAmount, row.OfferCurrency, row.Quantity,
				row.ExpirationDisplay, pgconv.TimePtrToPgtype(row.ExpiresAt), row.OfferType, row.Status,
				pgconv.TimeToPgtype(row.FetchedOn),
			)
			count++
		}
		br := r.db.SendBatch(ctx, b)
		for k := 0; k < count; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, r.wrap("failed to insert offers", err)
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, r.wrap("failed to close insert batch", err)
		}
	}
	return total, nil
}

func (r *PostgresOfferRepository) FindByID(ctx context.Context, offerID string) (*offer.Offer, error) {
	return r.findOne(ctx, `SELECT `+pgOfferColumns+` FROM offers WHERE offer_id = $1`, offerID)
}

func (r *PostgresOfferRepository) FindByIDForUpdate(ctx context.Context, offerID string) (*offer.Offer, error) {
	return r.findOne(ctx, `SELECT `+pgOfferColumns+` FROM offers WHERE offer_id = $1 FOR UPDATE`, offerID)
}

func (r *PostgresOfferRepository) ListAlertCandidates(ctx context.Context) ([]*offer.Offer, error) {
	return r.list(ctx, `SELECT `+pgOfferColumns+` FROM offers
		WHERE response_state = 'open' AND NOT channel_alerted AND NOT surfaced
		ORDER BY fetched_on, offer_id`)
}

func (r *PostgresOfferRepository) ListSurfaceable(ctx context.Context, skuKey string) ([]*offer.Offer, error) {
	return r.list(ctx, `SELECT `+pgOfferColumns+` FROM offers
		WHERE sku_key = $1 AND response_state = 'open' AND NOT surfaced
		ORDER BY fetched_on, offer_id`, skuKey)
}

func (r *PostgresOfferRepository) List(ctx context.Context, filter shared.OfferFilter) ([]*offer.Offer, error) {
	var (
		where []string
		args  []any
	)
	if filter.State != nil {
		args = append(args, filter.State.String())
		where = append(where, fmt.Sprintf("response_state = $%d", len(args)))
	}
	if filter.SKU != "" {
		args = append(args, filter.SKU)
		where = append(where, fmt.Sprintf("sku = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + pgOfferColumns + ` FROM offers`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY fetched_on, offer_id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return r.list(ctx, sb.String(), args...)
}

func (r *PostgresOfferRepository) BackfillSKU(ctx context.Context, itemID, sku string) (int, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE offers SET sku = $2, sku_key = $3 WHERE item_id = $1 AND sku = ''`,
		itemID, sku, channel.NormalizeSKU(sku))
	if err != nil {
		return 0, r.wrap("failed to backfill sku", err)
	}
	return int(tag.RowsAffected()), nil
}

// SaveNotification never clears a flag: alert and surface markers only move forward.
func (r *PostgresOfferRepository) SaveNotification(ctx context.Context, o *offer.Offer) error {
	row := converter.OfferToRow(o)
	tag, err := r.db.Exec(ctx, `UPDATE offers SET
			channel_alerted = channel_alerted OR $2,
			alerted_at = COALESCE(alerted_at, $3),
			surfaced = surfaced OR $4,
			surfaced_at = CASE WHEN $4 THEN $5 ELSE surfaced_at END,
			surface_channel_id = CASE WHEN $4 THEN $6 ELSE surface_channel_id END,
			surface_message_id = CASE WHEN $4 THEN $7 ELSE surface_message_id END
		WHERE offer_id = $1`,
		row.OfferID, row.ChannelAlerted, pgconv.TimePtrToPgtype(row.AlertedAt),
		row.Surfaced, pgconv.TimePtrToPgtype(row.SurfacedAt), row.SurfaceChannelID, row.SurfaceMessageID,
	)
	if err != nil {
		return r.wrap("failed to save notification state", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "offer not found: "+row.OfferID, nil)
	}
	return nil
}

func (r *PostgresOfferRepository) SaveResponse(ctx context.Context, o *offer.Offer) error {
	row := converter.OfferToRow(o)
	tag, err := r.db.Exec(ctx, `UPDATE offers SET response_state = $2, responded_at = $3, response_note = $4
		WHERE offer_id = $1 AND response_state = 'open'`,
		row.OfferID, row.ResponseState, pgconv.TimePtrToPgtype(row.RespondedAt), row.ResponseNote,
	)
	if err != nil {
		return r.wrap("failed to save response", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE offer_id = $1)`, row.OfferID).Scan(&exists); err != nil {
		return r.wrap("failed to check offer", err)
	}
	if !exists {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "offer not found: "+row.OfferID, nil)
	}
	return offer.ErrAlreadyResolved
}

func (r *PostgresOfferRepository) findOne(ctx context.Context, query string, offerID string) (*offer.Offer, error) {
	row, err := scanPgOffer(r.db.QueryRow(ctx, query, offerID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "offer not found: "+offerID, nil)
		}
		return nil, r.wrap("failed to load offer", err)
	}
	o, err := converter.OfferFromRow(row, r.loc)
	if err != nil {
		return nil, r.wrap("failed to convert offer", err)
	}
	return o, nil
}

func (r *PostgresOfferRepository) list(ctx context.Context, query string, args ...any) ([]*offer.Offer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.wrap("failed to list offers", err)
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		row, err := scanPgOffer(rows)
		if err != nil {
			return nil, r.wrap("failed to scan offer", err)
		}
		o, err := converter.OfferFromRow(row, r.loc)
		if err != nil {
			return nil, r.wrap("failed to convert offer", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("failed to iterate offers", err)
	}
	return out, nil
}

func (r *PostgresOfferRepository) wrap(msg string, err error) error {
	return infra.WrapRepoErr(r.logger, classifyPgError(err), msg, err)
}

func scanPgOffer(row pgx.Row) (converter.OfferRow, error) {
	var r converter.OfferRow
	err := row.Scan(
		&r.OfferID, &r.ItemID, &r.SKU, &r.SKUKey, &r.Title, &r.BINPrice, &r.BINCurrency,
		&r.BuyerUserID, &r.BuyerMessage, &r.OfferAmount, &r.OfferCurrency, &r.Quantity,
		&r.ExpirationDisplay, &r.ExpiresAt, &r.OfferType, &r.Status, &r.FetchedOn,
		&r.ChannelAlerted, &r.AlertedAt, &r.Surfaced, &r.SurfacedAt, &r.SurfaceChannelID, &r.SurfaceMessageID,
		&r.ResponseState, &r.RespondedAt, &r.ResponseNote,
	)
	return r, err
}
