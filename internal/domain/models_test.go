package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Artifact{}).TableName():       "artifacts",
		(TurdEvent{}).TableName():      "turds",
		(RateLimitState{}).TableName(): "turd_rate_limits",
		(MintClaim{}).TableName():      "mint_claims",
		(AuthNonce{}).TableName():      "auth_nonces",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Artifact{}, &TurdEvent{}, &RateLimitState{}, &MintClaim{}, &AuthNonce{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&Artifact{}, &TurdEvent{}, &RateLimitState{}, &MintClaim{}, &AuthNonce{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&TurdEvent{}, "ux_turds_cast_hash") {
		t.Fatalf("expected unique index ux_turds_cast_hash on turds")
	}
	if !m.HasIndex(&TurdEvent{}, "idx_turds_to") {
		t.Fatalf("expected index idx_turds_to on turds")
	}
}

func TestMigrations_ColumnNames(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Artifact{}, &TurdEvent{}, &RateLimitState{}, &MintClaim{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	want := map[any][]string{
		&Artifact{}:       {"fid"},
		&TurdEvent{}:      {"from_fid", "to_fid"},
		&RateLimitState{}: {"from_fid"},
		&MintClaim{}:      {"fid"},
	}
	for model, cols := range want {
		types, err := db.Migrator().ColumnTypes(model)
		if err != nil {
			t.Fatalf("column types %T: %v", model, err)
		}
		have := map[string]bool{}
		for _, ct := range types {
			have[ct.Name()] = true
		}
		for _, c := range cols {
			if !have[c] {
				t.Fatalf("%T: missing column %q (have %v)", model, c, have)
			}
		}
		for _, bad := range []string{"f_id", "from_f_id", "to_f_id"} {
			if have[bad] {
				t.Fatalf("%T: unexpected column %q", model, bad)
			}
		}
	}

	// Raw SQL in the stats queries relies on these names.
	if err := db.Exec("SELECT fid FROM artifacts").Error; err != nil {
		t.Fatalf("select fid: %v", err)
	}
	if err := db.Exec("SELECT from_fid, to_fid FROM turds").Error; err != nil {
		t.Fatalf("select from_fid, to_fid: %v", err)
	}
}

func TestTurdEvent_CastHashUnique(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&TurdEvent{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	ev := TurdEvent{FromFID: 1, FromUsername: "a", ToFID: 2, ToUsername: "b", CastHash: "0xabc", CreatedAt: now}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := TurdEvent{FromFID: 3, FromUsername: "c", ToFID: 2, ToUsername: "b", CastHash: "0xabc", CreatedAt: now}
	err := db.Create(&dup).Error
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "unique") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestArtifact_RoundTripBytes(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Artifact{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	in := Artifact{FID: 198116, Image: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png", Prompt: "p", CreatedAt: time.Now().UTC()}
	if err := db.Create(&in).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	var out Artifact
	if err := db.First(&out, "fid = ?", 198116).Error; err != nil {
		t.Fatalf("select: %v", err)
	}
	if string(out.Image) != string(in.Image) || out.Prompt != "p" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}
