package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nhmexplorer/internal/domain"
)

func (d *Database) UpsertSession(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `insert into sessions
	(chat_id, user_id, scientific_name, country, year, row_limit, row_offset, run_id, updated_at)
	values (?, ?, ?, ?, ?, ?, ?, ?, ?)
	on conflict (chat_id) do update
	set user_id = excluded.user_id,
	scientific_name = excluded.scientific_name,
	country = excluded.country,
	year = excluded.year,
	row_limit = excluded.row_limit,
	row_offset = excluded.row_offset,
	run_id = excluded.run_id,
	updated_at = excluded.updated_at`

	_, err := d.db.ExecContext(ctx, query,
		session.ChatID,
		session.UserID,
		session.Query.ScientificName,
		session.Query.Country,
		session.Query.Year,
		session.Query.Limit,
		session.Query.Offset,
		session.RunID,
		updatedAt.Unix(),
	)

	return err
}

// GetSession returns the stored session of a chat, or nil when there is
// none.
func (d *Database) GetSession(ctx context.Context, chatID int64) (*domain.Session, error) {
	query := `select chat_id, user_id, scientific_name, country, year, row_limit, row_offset, run_id, updated_at
	from sessions
	where chat_id = ?`

	var s domain.Session
	var updatedAt int64

	err := d.db.QueryRowContext(ctx, query, chatID).Scan(
		&s.ChatID,
		&s.UserID,
		&s.Query.ScientificName,
		&s.Query.Country,
		&s.Query.Year,
		&s.Query.Limit,
		&s.Query.Offset,
		&s.RunID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Absent session is not an error.
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &s, nil
}

func (d *Database) AddMessage(ctx context.Context, message *domain.Message) error {
	if message == nil {
		return errors.New("message is nil")
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return errors.New("message text is empty")
	}

	createdAt := message.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := "insert into messages (chat_id, role, text, created_at) values (?, ?, ?, ?)"

	res, err := d.db.ExecContext(ctx, query, message.ChatID, string(message.Role), text, createdAt.Unix())
	if err != nil {
		return err
	}

	if id, idErr := res.LastInsertId(); idErr == nil {
		message.ID = id
	}

	return nil
}

// GetRecentMessages returns up to limit latest messages of a chat, oldest
// first.
func (d *Database) GetRecentMessages(
	ctx context.Context,
	chatID int64,
	limit int,
) ([]domain.Message, error) {
	query := `select id, chat_id, role, text, created_at
	from (
		select id, chat_id, role, text, created_at
		from messages
		where chat_id = ?
		order by id desc
		limit ?
	)
	order by id asc`

	rows, err := d.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"chatID", chatID,
				"operation", "GetRecentMessages")
		}
	}()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var role string
		var createdAt int64

		if err = rows.Scan(&m.ID, &m.ChatID, &role, &m.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		m.Role = domain.MessageRole(role)
		m.CreatedAt = time.Unix(createdAt, 0).UTC()

		messages = append(messages, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return messages, nil
}

func (d *Database) DeleteChatMessages(ctx context.Context, chatID int64) (int64, error) {
	res, err := d.db.ExecContext(ctx, "delete from messages where chat_id = ?", chatID)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (d *Database) DeleteMessagesBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "delete from messages where created_at < ?", before.Unix())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
