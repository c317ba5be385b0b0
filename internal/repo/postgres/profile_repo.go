package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/domain/model"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

// ProfileContentPatch holds the fields a user may edit on their own profile.
// Nil fields are left untouched.
type ProfileContentPatch struct {
	WhatsAppPhone      *string
	About              *string
	Interests          []string
	Wishlist           *string
	RelationshipStatus *string
	ShowProfileToMatch *bool
}

// ProfileAdminPatch holds the fields an operator may edit.
type ProfileAdminPatch struct {
	Name          *string
	Email         *string
	WhatsAppPhone *string
	Gender        *enums.Gender
	PaymentStatus *bool
}

const profileColumns = `
	user_id::text,
	name,
	email,
	password_hash,
	gender,
	whatsapp_phone,
	about,
	interests,
	wishlist,
	relationship_status,
	show_profile_to_match,
	photo_key,
	payment_status,
	created_at,
	updated_at`

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, p model.Profile) (model.Profile, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Profile{}, err
	}
	if p.UserID == "" || strings.TrimSpace(p.Email) == "" || !p.Gender.Valid() {
		return model.Profile{}, fmt.Errorf("invalid profile create payload")
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}

	row := q.QueryRow(ctx, `
INSERT INTO profiles (
	user_id,
	name,
	email,
	password_hash,
	gender,
	whatsapp_phone,
	show_profile_to_match,
	created_at,
	updated_at
) VALUES ($1::uuid, $2, LOWER($3), $4, $5, $6, TRUE, $7, $7)
RETURNING `+profileColumns,
		p.UserID, p.Name, p.Email, p.PasswordHash, string(p.Gender), p.WhatsAppPhone, p.CreatedAt,
	)
	created, err := scanProfile(row)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "profiles_email_uidx" {
			return model.Profile{}, ErrEmailTaken
		}
		return model.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return created, nil
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (model.Profile, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Profile{}, err
	}

	p, err := scanProfile(q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1::uuid`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (model.Profile, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Profile{}, err
	}

	p, err := scanProfile(q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}

// GetMany returns the profiles found for ids keyed by user id. Unknown ids are skipped.
func (r *ProfileRepo) GetMany(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[p.UserID] = p
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate profiles: %w", rows.Err())
	}
	return out, nil
}

func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, user_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	items := make([]model.Profile, 0, 64)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		items = append(items, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate profiles: %w", rows.Err())
	}
	return items, nil
}

func (r *ProfileRepo) UpdateContent(ctx context.Context, userID string, patch ProfileContentPatch, now time.Time) (model.Profile, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Profile{}, err
	}

	p, err := scanProfile(q.QueryRow(ctx, `
UPDATE profiles
SET whatsapp_phone = COALESCE($2, whatsapp_phone),
    about = COALESCE($3, about),
    interests = COALESCE($4, interests),
    wishlist = COALESCE($5, wishlist),
    relationship_status = COALESCE($6, relationship_status),
    show_profile_to_match = COALESCE($7, show_profile_to_match),
    updated_at = $8
WHERE user_id = $1::uuid
RETURNING `+profileColumns,
		userID,
		patch.WhatsAppPhone,
		patch.About,
		patch.Interests,
		patch.Wishlist,
		patch.RelationshipStatus,
		patch.ShowProfileToMatch,
		now,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Profile{}, ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("update profile content: %w", err)
	}
	return p, nil
}

// AdminUpdate applies an operator patch. A gender change is refused while
// the user appears in any match so ledger columns stay consistent.
func (r *ProfileRepo) AdminUpdate(ctx context.Context, userID string, patch ProfileAdminPatch, now time.Time) (model.Profile, error) {
	var gender *string
	if patch.Gender != nil {
		g := string(*patch.Gender)
		gender = &g
	}

	var updated model.Profile
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var current string
		if err := tx.QueryRow(ctx, `SELECT gender FROM profiles WHERE user_id = $1::uuid FOR UPDATE`, userID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock profile: %w", err)
		}

		if gender != nil && *gender != current {
			var matched bool
			if err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM matches WHERE male_user_id = $1::uuid OR female_user_id = $1::uuid
)`, userID).Scan(&matched); err != nil {
				return fmt.Errorf("check profile matches: %w", err)
			}
			if matched {
				return ErrGenderLocked
			}
		}

		p, err := scanProfile(tx.QueryRow(ctx, `
UPDATE profiles
SET name = COALESCE($2, name),
    email = COALESCE(LOWER($3), email),
    whatsapp_phone = COALESCE($4, whatsapp_phone),
    gender = COALESCE($5, gender),
    payment_status = COALESCE($6, payment_status),
    updated_at = $7
WHERE user_id = $1::uuid
RETURNING `+profileColumns,
			userID, patch.Name, patch.Email, patch.WhatsAppPhone, gender, patch.PaymentStatus, now,
		))
		if err != nil {
			if name, ok := uniqueViolation(err); ok && name == "profiles_email_uidx" {
				return ErrEmailTaken
			}
			return fmt.Errorf("admin update profile: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return updated, nil
}

func (r *ProfileRepo) SetPhotoKey(ctx context.Context, userID, key string, now time.Time) error {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}

	res, err := q.Exec(ctx, `UPDATE profiles SET photo_key = $2, updated_at = $3 WHERE user_id = $1::uuid`, userID, key, now)
	if err != nil {
		return fmt.Errorf("set profile photo: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) SetPasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}

	res, err := q.Exec(ctx, `UPDATE profiles SET password_hash = $2, updated_at = $3 WHERE user_id = $1::uuid`, userID, hash, now)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid flips payment_status and records the gateway reference in one
// transaction. changed is false when the user had already paid.
func (r *ProfileRepo) MarkPaid(ctx context.Context, userID, reference string, amountKobo int64, currency string, now time.Time) (bool, error) {
	var changed bool
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var owner string
		err := tx.QueryRow(ctx, `
INSERT INTO payment_verifications (reference, user_id, amount_kobo, currency, verified_at)
VALUES ($1, $2::uuid, $3, $4, $5)
ON CONFLICT (reference) DO NOTHING
RETURNING user_id::text
`, reference, userID, amountKobo, currency, now).Scan(&owner)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			if foreignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("record payment verification: %w", err)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.QueryRow(ctx, `SELECT user_id::text FROM payment_verifications WHERE reference = $1`, reference).Scan(&owner); err != nil {
				return fmt.Errorf("lookup payment verification: %w", err)
			}
			if owner != userID {
				return ErrReferenceClaimed
			}
		}

		res, err := tx.Exec(ctx, `
UPDATE profiles
SET payment_status = TRUE, updated_at = $2
WHERE user_id = $1::uuid AND NOT payment_status
`, userID, now)
		if err != nil {
			return fmt.Errorf("mark profile paid: %w", err)
		}
		changed = res.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *ProfileRepo) Delete(ctx context.Context, userID string) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	res, err := q.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1::uuid`, userID)
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func scanProfile(row pgx.Row) (model.Profile, error) {
	var (
		p      model.Profile
		gender string
	)
	if err := row.Scan(
		&p.UserID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&gender,
		&p.WhatsAppPhone,
		&p.About,
		&p.Interests,
		&p.Wishlist,
		&p.RelationshipStatus,
		&p.ShowProfileToMatch,
		&p.PhotoKey,
		&p.PaymentStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return model.Profile{}, err
	}
	p.Gender = enums.Gender(gender)
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return p, nil
}
