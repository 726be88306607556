package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrilink/crm-sync/internal/domain"
)

// ProfileRepository looks up the user profile a pending record references.
type ProfileRepository interface {
	GetByRef(ctx context.Context, ref string) (domain.UserProfile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) GetByRef(ctx context.Context, ref string) (domain.UserProfile, error) {
	const query = `
        SELECT ref, first_name, last_name, phone,
               id_photo_url, id_photo_back_url, selfie_photo_url
        FROM user_profiles WHERE ref = $1`

	var profile domain.UserProfile
	err := r.pool.QueryRow(ctx, query, ref).Scan(
		&profile.Ref,
		&profile.FirstName,
		&profile.LastName,
		&profile.Phone,
		&profile.IDPhotoURL,
		&profile.IDPhotoBackURL,
		&profile.SelfiePhotoURL,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// A record pointing at a missing profile still syncs with empty
		// identity fields.
		return domain.UserProfile{Ref: ref}, nil
	}
	if err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}
