package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

// OpenPostgres connects to Postgres through bun's pgdriver.
func OpenPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenSQLite opens an SQLite database with foreign keys enforced.
// A single connection is used, which also keeps ":memory:" databases alive.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// CreateSchema creates the polls, questions, choices and answers tables.
// Children reference their parents with ON DELETE CASCADE.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	tables := []struct {
		model       any
		foreignKeys []string
	}{
		{model: (*pollRow)(nil)},
		{model: (*questionRow)(nil), foreignKeys: []string{
			`("poll_id") REFERENCES "polls" ("id") ON DELETE CASCADE`,
		}},
		{model: (*choiceRow)(nil), foreignKeys: []string{
			`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`,
		}},
		{model: (*answerRow)(nil), foreignKeys: []string{
			`("poll_id") REFERENCES "polls" ("id") ON DELETE CASCADE`,
			`("question_id") REFERENCES "questions" ("id") ON DELETE CASCADE`,
			`("choice_id") REFERENCES "choices" ("id") ON DELETE CASCADE`,
		}},
	}
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*questionRow)(nil), "questions_poll_id_idx", []string{"poll_id"}},
		{(*choiceRow)(nil), "choices_question_id_idx", []string{"question_id"}},
		{(*answerRow)(nil), "answers_user_poll_idx", []string{"user_id", "poll_id"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema removes every table created by CreateSchema.
func DropSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*answerRow)(nil), (*choiceRow)(nil), (*questionRow)(nil), (*pollRow)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
