package relation

import (
	matchmodel "PRelay/module/match/model"
	usermodel "PRelay/module/user/model"
	"PRelay/tools/errs"
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore 关系数据放在 Postgres 时使用。
//
//	users(id text primary key, username text, display_name text, first_name text,
//	      last_name text, profile_picture text, last_seen timestamptz, friend_ids text[])
//	matches(id text primary key, user1_id text, user2_id text, status text,
//	        created_at timestamptz, updated_at timestamptz)
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// OpenPgStore 建池并 Ping
func OpenPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.WrapMsg(err, "pgxpool new")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errs.WrapMsg(err, "postgres ping")
	}
	return &PgStore{pool: pool}, nil
}

func (s *PgStore) Close() { s.pool.Close() }

const pgSelectUser = `SELECT id, COALESCE(username,''), COALESCE(display_name,''), COALESCE(first_name,''),
	COALESCE(last_name,''), COALESCE(profile_picture,''), last_seen, COALESCE(friend_ids, '{}')
	FROM users`

func scanUser(row pgx.Row) (*usermodel.User, error) {
	var u usermodel.User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.FirstName,
		&u.LastName, &u.ProfilePicture, &u.LastSeen, &u.FriendIDs)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PgStore) FindUserByID(ctx context.Context, id string) (*usermodel.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, pgSelectUser+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound.WrapMsg("", "userId", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "postgres find user", "userId", id)
	}
	return u, nil
}

func (s *PgStore) FindUsersByIDs(ctx context.Context, ids []string, p usermodel.Projection) ([]usermodel.Profile, error) {
	if len(ids) == 0 {
		return []usermodel.Profile{}, nil
	}
	rows, err := s.pool.Query(ctx, pgSelectUser+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errs.WrapMsg(err, "postgres find users", "count", len(ids))
	}
	defer rows.Close()

	out := make([]usermodel.Profile, 0, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errs.WrapMsg(err, "postgres scan user")
		}
		out = append(out, u.Project(p))
	}
	if err := rows.Err(); err != nil {
		return nil, errs.WrapMsg(err, "postgres users rows")
	}
	return out, nil
}

func (s *PgStore) FindAcceptedMatchesInvolving(ctx context.Context, userID string) ([]matchmodel.Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user1_id, user2_id, status, created_at, updated_at
		   FROM matches
		  WHERE status = $1 AND (user1_id = $2 OR user2_id = $2)`,
		matchmodel.MatchAccepted, userID)
	if err != nil {
		return nil, errs.WrapMsg(err, "postgres find matches", "userId", userID)
	}
	defer rows.Close()

	var out []matchmodel.Match
	for rows.Next() {
		var (
			m                matchmodel.Match
			created, updated *time.Time
		)
		if err := rows.Scan(&m.ID, &m.User1ID, &m.User2ID, &m.Status, &created, &updated); err != nil {
			return nil, errs.WrapMsg(err, "postgres scan match")
		}
		if created != nil {
			m.CreatedAt = *created
		}
		if updated != nil {
			m.UpdatedAt = *updated
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.WrapMsg(err, "postgres matches rows")
	}
	return out, nil
}
