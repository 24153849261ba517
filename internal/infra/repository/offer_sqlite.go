package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"offer-relay/internal/domain/channel"
	"offer-relay/internal/domain/offer"
	"offer-relay/internal/infra"
	"offer-relay/internal/infra/repository/converter"
	"offer-relay/internal/pkg/pgconv"
	"offer-relay/internal/usecase/shared"
)

// SQLDBTX is satisfied by *sql.Tx and *sql.DB.
type SQLDBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Fixed width UTC so text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteOfferColumns = `offer_id, item_id, sku, sku_key, title, bin_price, bin_currency,
	buyer_user_id, buyer_message, offer_amount, offer_currency, quantity,
	expiration_display, expires_at, offer_type, status, fetched_on,
	channel_alerted, alerted_at, surfaced, surfaced_at, surface_channel_id, surface_message_id,
	response_state, responded_at, response_note`

const sqliteInsertOffer = `INSERT OR IGNORE INTO offers
	(offer_id, item_id, sku, sku_key, title, bin_price, bin_currency,
	 buyer_user_id, buyer_message, offer_amount, offer_currency, quantity,
	 expiration_display, expires_at, offer_type, status, fetched_on)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// sqliteMaxParams stays well below SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxParams = 500

type SQLiteOfferRepository struct {
	db     SQLDBTX
	loc    *time.Location
	logger *slog.Logger
}

var _ shared.OfferRepository = (*SQLiteOfferRepository)(nil)

func NewSQLiteOfferRepository(db SQLDBTX, loc *time.Location, logger *slog.Logger) *SQLiteOfferRepository {
	return &SQLiteOfferRepository{db: db, loc: loc, logger: logger}
}

func (r *SQLiteOfferRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	for i := 0; i < len(ids); i += sqliteMaxParams {
		chunk := ids[i:min(i+sqliteMaxParams, len(ids))]
		args := make([]any, len(chunk))
		for k, id := range chunk {
			args[k] = id
		}
		query := `SELECT offer_id FROM offers WHERE offer_id IN (` + placeholders(len(chunk)) + `)`
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, r.wrap("failed to load existing offer ids", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return nil, r.wrap("failed to scan offer id", err)
			}
			out[id] = struct{}{}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, r.wrap("failed to iterate offer ids", err)
		}
	}
	return out, nil
}

func (r *SQLiteOfferRepository) InsertNew(ctx context.Context, offers []*offer.Offer) (int, error) {
	total := 0
	for _, o := range offers {
		if o == nil {
			continue
		}
		row := converter.OfferToRow(o)
		res, err := r.db.ExecContext(ctx, sqliteInsertOffer,
			row.OfferID, row.ItemID, row.SKU, row.SKUKey, row.Title, row.BINPrice, row.BINCurrency,
			row.BuyerUserID, row.BuyerMessage, row.OfferAmount, row.OfferCurrency, row.Quantity,
			row.ExpirationDisplay, formatSQLiteTimePtr(row.ExpiresAt), row.OfferType, row.Status,
			formatSQLiteTime(row.FetchedOn),
		)
		if err != nil {
			return total, r.wrap("failed to insert offer", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, r.wrap("failed to read insert result", err)
		}
		total += int(n)
	}
	return total, nil
}

func (r *SQLiteOfferRepository) FindByID(ctx context.Context, offerID string) (*offer.Offer, error) {
	row, err := scanSQLiteOffer(r.db.QueryRowContext(ctx, `SELECT `+sqliteOfferColumns+` FROM offers WHERE offer_id = ?`, offerID))
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

// FindByIDForUpdate needs no row lock: write transactions begin IMMEDIATE and hold the database
// write lock until commit.
func (r *SQLiteOfferRepository) FindByIDForUpdate(ctx context.Context, offerID string) (*offer.Offer, error) {
	return r.FindByID(ctx, offerID)
}

func (r *SQLiteOfferRepository) ListAlertCandidates(ctx context.Context) ([]*offer.Offer, error) {
	return r.list(ctx, `SELECT `+sqliteOfferColumns+` FROM offers
		WHERE response_state = 'open' AND channel_alerted = 0 AND surfaced = 0
		ORDER BY fetched_on, offer_id`)
}

func (r *SQLiteOfferRepository) ListSurfaceable(ctx context.Context, skuKey string) ([]*offer.Offer, error) {
	return r.list(ctx, `SELECT `+sqliteOfferColumns+` FROM offers
		WHERE sku_key = ? AND response_state = 'open' AND surfaced = 0
		ORDER BY fetched_on, offer_id`, skuKey)
}

func (r *SQLiteOfferRepository) List(ctx context.Context, filter shared.OfferFilter) ([]*offer.Offer, error) {
	var (
		where []string
		args  []any
	)
	if filter.State != nil {
		where = append(where, "response_state = ?")
		args = append(args, filter.State.String())
	}
	if filter.SKU != "" {
		where = append(where, "sku = ?")
		args = append(args, filter.SKU)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + sqliteOfferColumns + ` FROM offers`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY fetched_on, offer_id")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}
	return r.list(ctx, sb.String(), args...)
}

func (r *SQLiteOfferRepository) BackfillSKU(ctx context.Context, itemID, sku string) (int, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE offers SET sku = ?, sku_key = ? WHERE item_id = ? AND sku = ''`,
		sku, channel.NormalizeSKU(sku), itemID)
	if err != nil {
		return 0, r.wrap("failed to backfill sku", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.wrap("failed to read backfill result", err)
	}
	return int(n), nil
}

func (r *SQLiteOfferRepository) SaveNotification(ctx context.Context, o *offer.Offer) error {
	row := converter.OfferToRow(o)
	res, err := r.db.ExecContext(ctx, `UPDATE offers SET
			channel_alerted = MAX(channel_alerted, ?1),
			alerted_at = COALESCE(alerted_at, ?2),
			surfaced = MAX(surfaced, ?3),
			surfaced_at = CASE WHEN ?3 THEN ?4 ELSE surfaced_at END,
			surface_channel_id = CASE WHEN ?3 THEN ?5 ELSE surface_channel_id END,
			surface_message_id = CASE WHEN ?3 THEN ?6 ELSE surface_message_id END
		WHERE offer_id = ?7`,
		boolInt(row.ChannelAlerted), formatSQLiteTimePtr(row.AlertedAt),
		boolInt(row.Surfaced), formatSQLiteTimePtr(row.SurfacedAt), row.SurfaceChannelID, row.SurfaceMessageID,
		row.OfferID,
	)
	if err != nil {
		return r.wrap("failed to save notification state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.wrap("failed to read notification result", err)
	}
	if n == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "offer not found: "+row.OfferID, nil)
	}
	return nil
}

func (r *SQLiteOfferRepository) SaveResponse(ctx context.Context, o *offer.Offer) error {
	row := converter.OfferToRow(o)
	res, err := r.db.ExecContext(ctx, `UPDATE offers SET response_state = ?, responded_at = ?, response_note = ?
		WHERE offer_id = ? AND response_state = 'open'`,
		row.ResponseState, formatSQLiteTimePtr(row.RespondedAt), row.ResponseNote, row.OfferID,
	)
	if err != nil {
		return r.wrap("failed to save response", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.wrap("failed to read response result", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE offer_id = ?)`, row.OfferID).Scan(&exists); err != nil {
		return r.wrap("failed to check offer", err)
	}
	if !exists {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "offer not found: "+row.OfferID, nil)
	}
	return offer.ErrAlreadyResolved
}

func (r *SQLiteOfferRepository) list(ctx context.Context, query string, args ...any) ([]*offer.Offer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.wrap("failed to list offers", err)
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		row, err := scanSQLiteOffer(rows)
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

func (r *SQLiteOfferRepository) wrap(msg string, err error) error {
	return infra.WrapRepoErr(r.logger, classifySQLiteError(err), msg, err)
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteOffer(s sqlScanner) (converter.OfferRow, error) {
	var (
		r                                        converter.OfferRow
		expiresAt, alertedAt, surfacedAt, respAt sql.NullString
		fetchedOn                                string
	)
	err := s.Scan(
		&r.OfferID, &r.ItemID, &r.SKU, &r.SKUKey, &r.Title, &r.BINPrice, &r.BINCurrency,
		&r.BuyerUserID, &r.BuyerMessage, &r.OfferAmount, &r.OfferCurrency, &r.Quantity,
		&r.ExpirationDisplay, &expiresAt, &r.OfferType, &r.Status, &fetchedOn,
		&r.ChannelAlerted, &alertedAt, &r.Surfaced, &surfacedAt, &r.SurfaceChannelID, &r.SurfaceMessageID,
		&r.ResponseState, &respAt, &r.ResponseNote,
	)
	if err != nil {
		return r, err
	}

	if r.FetchedOn, err = parseSQLiteTime(fetchedOn); err != nil {
		return r, err
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{expiresAt, &r.ExpiresAt},
		{alertedAt, &r.AlertedAt},
		{surfacedAt, &r.SurfacedAt},
		{respAt, &r.RespondedAt},
	} {
		if !f.src.Valid || f.src.String == "" {
			continue
		}
		t, err := parseSQLiteTime(f.src.String)
		if err != nil {
			return r, err
		}
		*f.dst = &t
	}
	return r, nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatSQLiteTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatSQLiteTime(*t)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
