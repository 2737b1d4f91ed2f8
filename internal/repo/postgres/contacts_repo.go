package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/contacthub/internal/domain/contact"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contactColumns = `id, name, email, phone, favorite, owner_id, created_at, updated_at`

type ContactsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewContactsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ContactsRepo {
	return &ContactsRepo{pool: pool, prom: prom}
}

func scanContact(row pgx.Row) (contact.Contact, error) {
	var c contact.Contact

	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contact.Contact{}, contact.ErrNotFound
		}
		return contact.Contact{}, err
	}
	return c, nil
}

func (r *ContactsRepo) queryContact(ctx context.Context, op, sql string, args ...any) (contact.Contact, error) {
	var c contact.Contact
	var miss bool

	err := r.prom.ObserveDB(op, func() error {
		var err error
		c, err = scanContact(r.pool.QueryRow(ctx, sql, args...))
		if errors.Is(err, contact.ErrNotFound) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return contact.Contact{}, contact.ErrDuplicate
		}
		return contact.Contact{}, err
	}
	if miss {
		return contact.Contact{}, contact.ErrNotFound
	}
	return c, nil
}

func (r *ContactsRepo) Create(ctx context.Context, c contact.Contact) (contact.Contact, error) {
	err := r.prom.ObserveDB("contacts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO contacts (id, name, email, phone, favorite, owner_id, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			c.ID, c.Name, c.Email, c.Phone, c.Favorite, c.OwnerID, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return contact.Contact{}, contact.ErrDuplicate
		}
		return contact.Contact{}, err
	}
	return c, nil
}

// GetByID loads a contact regardless of owner; callers run it through
// access.Authorize.
func (r *ContactsRepo) GetByID(ctx context.Context, id string) (contact.Contact, error) {
	return r.queryContact(ctx, "contacts.get_by_id",
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
}

func (r *ContactsRepo) List(ctx context.Context, filter contact.ListFilter) ([]contact.Contact, int, error) {
	baseQuery := `SELECT ` + contactColumns + `, COUNT(*) OVER() AS total FROM contacts`

	conds := []string{"owner_id = $1"}
	args := []any{filter.OwnerID}
	argsPosition := 2

	if filter.Favorite != nil {
		conds = append(conds, fmt.Sprintf("favorite = $%d", argsPosition))
		args = append(args, *filter.Favorite)
		argsPosition++
	}

	query := baseQuery + " WHERE " + strings.Join(conds, " AND ")

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)
	args = append(args, filter.Limit, max(filter.Offset, 0))

	var out []contact.Contact
	total := 0

	err := r.prom.ObserveDB("contacts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]contact.Contact, 0, filter.Limit)
		for rows.Next() {
			var c contact.Contact
			var t int

			if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Favorite, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt, &t); err != nil {
				return err
			}
			total = t
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	// past the last page the window count is unavailable
	if len(out) == 0 && filter.Offset > 0 {
		total, err = r.count(ctx, conds, args[:len(args)-2])
		if err != nil {
			return nil, 0, err
		}
	}

	return out, total, nil
}

func (r *ContactsRepo) count(ctx context.Context, conds []string, args []any) (int, error) {
	var total int

	err := r.prom.ObserveDB("contacts.count", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM contacts WHERE `+strings.Join(conds, " AND "),
			args...,
		).Scan(&total)
	})
	return total, err
}

func (r *ContactsRepo) Update(ctx context.Context, scope contact.Scope, req contact.UpdateContactRequest) (contact.Contact, error) {
	return r.queryContact(ctx, "contacts.update",
		`UPDATE contacts
		SET name = $3,
		    email = $4,
		    phone = $5,
		    favorite = $6,
		    updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+contactColumns,
		scope.ID, scope.OwnerID, req.Name, req.Email, req.Phone, req.Favorite,
	)
}

func (r *ContactsRepo) SetFavorite(ctx context.Context, scope contact.Scope, favorite bool) (contact.Contact, error) {
	return r.queryContact(ctx, "contacts.set_favorite",
		`UPDATE contacts
		SET favorite = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+contactColumns,
		scope.ID, scope.OwnerID, favorite,
	)
}

func (r *ContactsRepo) Delete(ctx context.Context, scope contact.Scope) (contact.Contact, error) {
	return r.queryContact(ctx, "contacts.delete",
		`DELETE FROM contacts
		WHERE id = $1 AND owner_id = $2
		RETURNING `+contactColumns,
		scope.ID, scope.OwnerID,
	)
}
