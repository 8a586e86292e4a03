package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
)

// Store exposes the three repositories over this database.
func (s *DB) Store() *repository.Store {
	return repository.NewStore(&cardRepo{s: s}, &packRepo{s: s}, &settingsRepo{s: s}, s)
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *DB) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// forUpdate locks the selected row inside a transaction where supported.
func (s *DB) forUpdate() string {
	if s.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (s *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanDoc[T any](row *sql.Row, notFound error) (T, error) {
	var (
		v   T
		raw string
	)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, notFound
		}
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode row: %w", err)
	}
	return v, nil
}

func encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return string(raw), nil
}

type cardRepo struct{ s *DB }

func (r *cardRepo) get(ctx context.Context, q queryer, fingerprint, suffix string) (entity.Card, error) {
	row := q.QueryRowContext(ctx, r.s.rebind(`SELECT doc FROM cards WHERE md5 = ?`+suffix), fingerprint)
	return scanDoc[entity.Card](row, common.NotFoundf("card %s not found", fingerprint))
}

func (r *cardRepo) put(ctx context.Context, tx *sql.Tx, card entity.Card) error {
	doc, err := encode(card)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, r.s.rebind(`
		INSERT INTO cards (md5, doc, hidden, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (md5) DO UPDATE SET doc = excluded.doc, hidden = excluded.hidden, created_at = excluded.created_at`),
		card.MD5, doc, card.Hidden, card.CreatedAt)
	return err
}

func (r *cardRepo) Get(ctx context.Context, fingerprint string) (entity.Card, error) {
	return r.get(ctx, r.s.db, fingerprint, "")
}

func (r *cardRepo) Upsert(ctx context.Context, card entity.Card) error {
	err := r.s.inTx(ctx, func(tx *sql.Tx) error { return r.put(ctx, tx, card) })
	if err != nil {
		r.s.logger.Error("failed to upsert card", "md5", card.MD5, "error", err)
	}
	return err
}

func (r *cardRepo) Update(ctx context.Context, fingerprint string, fn func(*entity.Card) error) (entity.Card, error) {
	var out entity.Card
	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := r.get(ctx, tx, fingerprint, r.s.forUpdate())
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		out = c
		return r.put(ctx, tx, c)
	})
	return out, err
}

func (r *cardRepo) List(ctx context.Context) ([]entity.Card, error) {
	return listDocs[entity.Card](ctx, r.s, `SELECT doc FROM cards ORDER BY created_at, md5`)
}

func listDocs[T any](ctx context.Context, s *DB, query string) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type packRepo struct{ s *DB }

func (r *packRepo) get(ctx context.Context, q queryer, id, suffix string) (entity.Pack, error) {
	row := q.QueryRowContext(ctx, r.s.rebind(`SELECT doc FROM packs WHERE id = ?`+suffix), id)
	return scanDoc[entity.Pack](row, common.NotFoundf("pack %s not found", id))
}

func (r *packRepo) Create(ctx context.Context, pack entity.Pack) error {
	doc, err := encode(pack)
	if err != nil {
		return err
	}
	_, err = r.s.db.ExecContext(ctx, r.s.rebind(`INSERT INTO packs (id, status, doc, created_at) VALUES (?, ?, ?, ?)`),
		pack.ID, string(pack.Status), doc, pack.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pack %s: %w", pack.ID, err)
	}
	return nil
}

func (r *packRepo) Get(ctx context.Context, id string) (entity.Pack, error) {
	return r.get(ctx, r.s.db, id, "")
}

func (r *packRepo) Update(ctx context.Context, id string, fn func(*entity.Pack) error) (entity.Pack, error) {
	var out entity.Pack
	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := r.get(ctx, tx, id, r.s.forUpdate())
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		doc, err := encode(p)
		if err != nil {
			return err
		}
		out = p
		_, err = tx.ExecContext(ctx, r.s.rebind(`UPDATE packs SET status = ?, doc = ? WHERE id = ?`), string(p.Status), doc, id)
		return err
	})
	return out, err
}

func (r *packRepo) List(ctx context.Context) ([]entity.Pack, error) {
	return listDocs[entity.Pack](ctx, r.s, `SELECT doc FROM packs ORDER BY created_at, id`)
}

func (r *packRepo) Delete(ctx context.Context, id string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`DELETE FROM packs WHERE id = ?`), id)
	return err
}

type settingsRepo struct{ s *DB }

func (r *settingsRepo) load(ctx context.Context, q queryer, suffix string) (entity.Settings, error) {
	s, err := scanDoc[entity.Settings](q.QueryRowContext(ctx, `SELECT doc FROM settings WHERE id = 1`+suffix), common.ErrNotFound)
	if errors.Is(err, common.ErrNotFound) {
		return entity.Settings{}, nil
	}
	if s == nil {
		s = entity.Settings{}
	}
	return s, err
}

func (r *settingsRepo) Load(ctx context.Context) (entity.Settings, error) {
	return r.load(ctx, r.s.db, "")
}

func (r *settingsRepo) Merge(ctx context.Context, patch entity.Settings) (entity.Settings, error) {
	var out entity.Settings
	err := r.s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.load(ctx, tx, r.s.forUpdate())
		if err != nil {
			return err
		}
		out = cur.Merge(patch)
		doc, err := encode(out)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, r.s.rebind(`
			INSERT INTO settings (id, doc) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET doc = excluded.doc`), doc)
		return err
	})
	return out, err
}
