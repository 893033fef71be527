package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/farcasturd-backend/internal/chain"
	"github.com/tbourn/farcasturd-backend/internal/domain"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	"github.com/tbourn/farcasturd-backend/internal/palette"
	"github.com/tbourn/farcasturd-backend/internal/repo"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// ----- social graph -----

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[int64]farcaster.Profile
	byName   map[string]farcaster.Profile
	err      error
	calls    int
}

func newFakeProfiles(ps ...farcaster.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[int64]farcaster.Profile{}, byName: map[string]farcaster.Profile{}}
	for _, p := range ps {
		f.profiles[p.FID] = p
		f.byName[strings.ToLower(p.Username)] = p
	}
	return f
}

func (f *fakeProfiles) Profile(_ context.Context, fid int64) (*farcaster.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[fid]
	if !ok {
		return nil, farcaster.ErrUserNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) ProfilesByFID(_ context.Context, fids []int64) (map[int64]farcaster.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[int64]farcaster.Profile{}
	for _, id := range fids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProfiles) SearchUser(_ context.Context, username string) (*farcaster.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byName[strings.ToLower(username)]
	if !ok {
		return nil, farcaster.ErrUserNotFound
	}
	return &p, nil
}

type publishedCast struct {
	text, parent string
}

type fakeCasts struct {
	mu         sync.Mutex
	published  []publishedCast
	publishErr error
	mentions   []farcaster.Cast
	mentionErr error
	gotLimit   int
}

func (f *fakeCasts) PublishCast(_ context.Context, _ string, text, parent string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, publishedCast{text: text, parent: parent})
	return fmt.Sprintf("0xreply%d", len(f.published)), nil
}

func (f *fakeCasts) Mentions(_ context.Context, _ int64, limit int) ([]farcaster.Cast, error) {
	f.gotLimit = limit
	return f.mentions, f.mentionErr
}

// ----- generation pipeline -----

type fakePalettes struct {
	pal palette.Palette
	err error
	url string
}

func (f *fakePalettes) FromURL(_ context.Context, url string) (palette.Palette, error) {
	f.url = url
	return f.pal, f.err
}

type fakeImages struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	img     []byte
	err     error
}

func (f *fakeImages) Generate(_ context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	if f.img == nil {
		return []byte("\x89PNG-fake"), nil
	}
	return f.img, nil
}

// memArtifacts is a map-backed ArtifactStore for concurrency tests.
type memArtifacts struct {
	mu   sync.Mutex
	rows map[int64]domain.Artifact
}

func newMemArtifacts() *memArtifacts { return &memArtifacts{rows: map[int64]domain.Artifact{}} }

func (m *memArtifacts) Get(_ context.Context, fid int64) (*domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[fid]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return &a, nil
}

func (m *memArtifacts) Exists(_ context.Context, fid int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[fid]
	return ok, nil
}

func (m *memArtifacts) Put(_ context.Context, a *domain.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[a.FID] = *a
	return nil
}

// ----- chain -----

type fakeChain struct {
	mu        sync.Mutex
	minted    map[int64]bool
	hasErr    error
	mintErr   error
	price     *big.Int
	priceErr  error
	mintCalls int
	lastValue *big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{minted: map[int64]bool{}}
}

func (f *fakeChain) HasMinted(_ context.Context, fid int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.minted[fid], nil
}

func (f *fakeChain) MintFor(_ context.Context, _ string, fid int64, value *big.Int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	f.lastValue = value
	if f.mintErr != nil {
		return "", f.mintErr
	}
	f.minted[fid] = true
	return fmt.Sprintf("0x%064x", fid), nil
}

func (f *fakeChain) PrepareMint(to string, fid int64, value *big.Int) (chain.TxRequest, error) {
	if fid <= 0 {
		return chain.TxRequest{}, chain.ErrInvalidFID
	}
	return chain.TxRequest{To: "0x0000000000000000000000000000000000000c0d", Data: "0xdeadbeef", Value: value.String()}, nil
}

func (f *fakeChain) MintPrice(context.Context) (*big.Int, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	if f.price == nil {
		return new(big.Int), nil
	}
	return f.price, nil
}
