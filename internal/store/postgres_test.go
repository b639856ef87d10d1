package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ratingprep/internal/config"
	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

func sampleTable(t *testing.T) *core.Table {
	t.Helper()
	tbl, err := core.NewTableFromColumns(
		core.NewRawColumn("Province", []string{"Gauteng", ""}),
		core.NewDateColumn("TransactionMonth", []pgtype.Timestamp{
			{Time: time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC), Valid: true},
			{},
		}),
		core.NewFloatColumn("ExcessSelected", []pgtype.Float8{{Float64: 1500.5, Valid: true}, {}}),
		core.NewIntColumn("Cylinders", core.KindNullableInt, []pgtype.Int8{{Int64: 4, Valid: true}, {}}),
		core.NewIntColumn("NewVehicle", core.KindBinaryInt, []pgtype.Int8{{}, {Int64: 1, Valid: true}}),
	)
	if err != nil {
		t.Fatalf("NewTableFromColumns() error = %v", err)
	}
	return tbl
}

func TestSQLType(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want string
	}{
		{core.KindRaw, "text"},
		{core.KindCategorical, "text"},
		{core.KindDate, "timestamp"},
		{core.KindFloat, "double precision"},
		{core.KindNullableInt, "bigint"},
		{core.KindBinaryInt, "smallint"},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := SQLType(tt.kind); got != tt.want {
				t.Errorf("SQLType(%v) = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	sql, err := CreateTableSQL("staging.rating", sampleTable(t))
	if err != nil {
		t.Fatalf("CreateTableSQL() error = %v", err)
	}

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "staging"."rating"`,
		`"Province" text`,
		`"TransactionMonth" timestamp`,
		`"ExcessSelected" double precision`,
		`"Cylinders" bigint`,
		`"NewVehicle" smallint`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("CreateTableSQL() missing %q in:\n%s", want, sql)
		}
	}
}

func TestCreateTableSQL_QuotesIdentifiers(t *testing.T) {
	tbl, err := core.NewTable([]string{`we"ird`}, [][]string{{"x"}})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	sql, err := CreateTableSQL("t", tbl)
	if err != nil {
		t.Fatalf("CreateTableSQL() error = %v", err)
	}
	if !strings.Contains(sql, `"we""ird" text`) {
		t.Errorf("identifier not escaped:\n%s", sql)
	}
}

func TestCreateTableSQL_InvalidName(t *testing.T) {
	for _, name := range []string{"", "a.b.c", "a.", " "} {
		if _, err := CreateTableSQL(name, sampleTable(t)); err == nil {
			t.Errorf("CreateTableSQL(%q) expected error", name)
		}
	}
}

func TestCopySource(t *testing.T) {
	src := NewCopySource(context.Background(), sampleTable(t))

	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			t.Fatalf("Values() error = %v", err)
		}
		rows = append(rows, vals)
	}
	if err := src.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	if got := rows[0][0].(pgtype.Text); !got.Valid || got.String != "Gauteng" {
		t.Errorf("row 0 Province = %+v", got)
	}
	if got := rows[1][0].(pgtype.Text); got.Valid {
		t.Errorf("row 1 Province should be NULL, got %+v", got)
	}
	if got := rows[0][2].(pgtype.Float8); got.Float64 != 1500.5 {
		t.Errorf("row 0 ExcessSelected = %+v", got)
	}
	if got := rows[1][3].(pgtype.Int8); got.Valid {
		t.Errorf("row 1 Cylinders should be NULL, got %+v", got)
	}
	if got := rows[1][4].(pgtype.Int8); !got.Valid || got.Int64 != 1 {
		t.Errorf("row 1 NewVehicle = %+v", got)
	}
}

func TestCopySource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewCopySource(ctx, sampleTable(t))
	if src.Next() {
		t.Fatal("Next() should stop on a cancelled context")
	}
	if !errors.Is(src.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", src.Err())
	}
}

func TestConnect_NoURL(t *testing.T) {
	_, err := Connect(context.Background(), config.DatabaseConfig{})
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("Connect() error = %v, want ErrNoDatabase", err)
	}
	if core.MapError(err).Code != "DB003" {
		t.Errorf("MapError(ErrNoDatabase).Code = %q, want DB003", core.MapError(err).Code)
	}
}
