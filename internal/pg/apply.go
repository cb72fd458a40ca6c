package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// duplicate_object: повторный add constraint
const codeDuplicateObject = "42710"

// splitStatements режет блок DDL по ";" вне литералов и идентификаторов в кавычках.
// pq.QuoteLiteral/QuoteIdentifier экранируют кавычку удвоением, поэтому
// достаточно переключать состояние на каждой кавычке.
func splitStatements(block string) []string {
	var out []string
	inSingle, inDouble := false, false
	start := 0
	emit := func(end int) {
		if st := strings.TrimSpace(block[start:end]); st != "" {
			out = append(out, st)
		}
		start = end + 1
	}
	for i := 0; i < len(block); i++ {
		switch block[i] {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				emit(i)
			}
		}
	}
	emit(len(block))
	return out
}

// ApplyDDL выполняет map[key]sql по порядку ключей. Ожидается idempotent DDL (create ... if not exists);
// уже существующие constraint'ы пропускаются.
func ApplyDDL(ctx context.Context, db *sql.DB, ddl map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, k := range SortedKeys(ddl) {
		for _, sqlText := range splitStatements(ddl[k]) {
			if _, err := db.ExecContext(ctx, sqlText); err != nil {
				// pgx/stdlib возвращает *pgconn.PgError
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateObject {
					log.Printf("DDL skipped (already exists): %s (%s)", pgErr.ConstraintName, strings.TrimSpace(pgErr.Message))
					continue
				}
				return fmt.Errorf("DDL apply failed (%s): %w", k, err)
			}
		}
	}
	return nil
}
