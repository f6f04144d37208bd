package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"conciergebot/internal/apperrors"
)

const sessionsTable = "chat_sessions"

// PostgresStore хранит сессии в PostgreSQL с оптимистичной блокировкой по
// колонке version: сохранение устаревшей копии возвращает ErrSessionConflict.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *zap.Logger
}

// NewPostgresStore создает хранилище поверх открытого соединения.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger.Named("session.postgres"),
	}
}

func (ps *PostgresStore) selectQuery(chatID int64) sq.SelectBuilder {
	return ps.builder.
		Select("payload", "version").
		From(sessionsTable).
		Where(sq.Eq{"chat_id": chatID})
}

func (ps *PostgresStore) insertQuery(chatID int64, payload []byte, version int64) sq.InsertBuilder {
	return ps.builder.
		Insert(sessionsTable).
		Columns("chat_id", "payload", "version", "updated_at").
		Values(chatID, string(payload), version, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (chat_id) DO NOTHING")
}

func (ps *PostgresStore) updateQuery(chatID int64, payload []byte, expected int64) sq.UpdateBuilder {
	return ps.builder.
		Update(sessionsTable).
		Set("payload", string(payload)).
		Set("version", expected+1).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"chat_id": chatID, "version": expected})
}

// Load читает сессию. Версия берется из колонки, а не из JSON.
func (ps *PostgresStore) Load(ctx context.Context, chatID int64) (*ChatSession, error) {
	query, args, err := ps.selectQuery(chatID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: построение запроса: %w", err)
	}

	var (
		payload []byte
		version int64
	)
	err = ps.db.QueryRowContext(ctx, query, args...).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: чтение сессии %d: %w", chatID, err)
	}

	sess, err := Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	sess.Version = version
	return sess, nil
}

// Save вставляет новую сессию или обновляет существующую при совпадении версии.
func (ps *PostgresStore) Save(ctx context.Context, sess *ChatSession) error {
	expected := sess.Version
	sess.Version = expected + 1
	payload, err := Marshal(sess)
	if err != nil {
		sess.Version = expected
		return err
	}

	var builder sq.Sqlizer
	if expected == 0 {
		builder = ps.insertQuery(sess.ChatID, payload, sess.Version)
	} else {
		builder = ps.updateQuery(sess.ChatID, payload, expected)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		sess.Version = expected
		return fmt.Errorf("postgres: построение запроса: %w", err)
	}

	res, err := ps.db.ExecContext(ctx, query, args...)
	if err != nil {
		sess.Version = expected
		return fmt.Errorf("postgres: запись сессии %d: %w", sess.ChatID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		sess.Version = expected
		return fmt.Errorf("postgres: запись сессии %d: %w", sess.ChatID, err)
	}
	if affected == 0 {
		sess.Version = expected
		ps.logger.Warn("конфликт версий сессии", zap.Int64("chatID", sess.ChatID), zap.Int64("version", expected))
		return fmt.Errorf("%w: chat %d version %d", apperrors.ErrSessionConflict, sess.ChatID, expected)
	}
	return nil
}

// Delete удаляет сессию чата.
func (ps *PostgresStore) Delete(ctx context.Context, chatID int64) error {
	query, args, err := ps.builder.Delete(sessionsTable).Where(sq.Eq{"chat_id": chatID}).ToSql()
	if err != nil {
		return fmt.Errorf("postgres: построение запроса: %w", err)
	}
	if _, err := ps.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: удаление сессии %d: %w", chatID, err)
	}
	return nil
}
