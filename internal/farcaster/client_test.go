package farcaster

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bulkBody = `{
  "users": [
    {
      "fid": 198116,
      "username": "dwr",
      "display_name": "Dan",
      "pfp_url": "https://img.example/dwr.png",
      "custody_address": "0xAbCdEf0000000000000000000000000000000001",
      "verifications": ["0x00000000000000000000000000000000000000AA", 42, "not-an-address"],
      "verified_addresses": {"eth_addresses": ["0x00000000000000000000000000000000000000aa", "0x00000000000000000000000000000000000000bb"]},
      "profile": {"bio": {"text": "  building onchain things  "}}
    },
    {"fid": "0", "username": "broken"},
    {"fid": "77", "username": "stringfid"}
  ]
}`

func newTestServer(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{APIKey: "k", BaseURL: srv.URL}), srv
}

func TestProfilesByFID_CoercesPayload(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/farcaster/user/bulk", r.URL.Path)
		assert.Equal(t, "198116,77", r.URL.Query().Get("fids"))
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		_, _ = io.WriteString(w, bulkBody)
	})

	m, err := c.ProfilesByFID(context.Background(), []int64{198116, 77})
	require.NoError(t, err)
	require.Len(t, m, 2)

	p := m[198116]
	assert.Equal(t, "dwr", p.Username)
	assert.Equal(t, "Dan", p.DisplayName)
	assert.Equal(t, "building onchain things", p.Bio)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", p.Custody)
	assert.Equal(t, []string{
		"0x00000000000000000000000000000000000000aa",
		"0x00000000000000000000000000000000000000bb",
	}, p.Verified)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", p.PrimaryWallet())
	assert.True(t, p.OwnsAddress("0x00000000000000000000000000000000000000BB"))
	assert.False(t, p.OwnsAddress("0x00000000000000000000000000000000000000cc"))

	assert.Equal(t, "stringfid", m[77].Username)
}

func TestProfile_NotFoundAndErrors(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"users": []}`)
	})
	_, err := c.Profile(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUserNotFound)

	c2, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream down")
	})
	_, err = c2.Profile(context.Background(), 5)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)

	unconfigured := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err = unconfigured.Profile(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNotFound_OnlyUserLookupsMeanMissingUser(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	})
	ctx := context.Background()

	_, err := c.Profile(ctx, 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = c.SearchUser(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = c.PublishCast(ctx, "signer-1", "hi", "0xgone")
	assert.NotErrorIs(t, err, ErrUserNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.Mentions(ctx, 1, 10)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	require.True(t, errors.As(err, &apiErr))
}

func TestProfile_WalletFallsBackToCustody(t *testing.T) {
	p := Profile{Custody: "0x1"}
	assert.Equal(t, "0x1", p.PrimaryWallet())
	assert.False(t, p.OwnsAddress(""))
}

func TestSearchUser_ExactMatchOnly(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/farcaster/user/search", r.URL.Path)
		q := r.URL.Query().Get("q")
		if q == "alice" {
			_, _ = io.WriteString(w, `{"result":{"users":[{"fid":3,"username":"alicebot"},{"fid":4,"username":"Alice"}]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"result":{"users":[{"fid":9,"username":"someone-else"}]}}`)
	})

	p, err := c.SearchUser(context.Background(), "@alice")
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.FID)

	_, err = c.SearchUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = c.SearchUser(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPublishCast_SendsReply(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/farcaster/cast", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "signer-1", body["signer_uuid"])
		assert.Equal(t, "0xparent", body["parent"])
		assert.True(t, strings.HasPrefix(body["text"], "💩"))
		_, _ = io.WriteString(w, `{"success":true,"cast":{"hash":"0xnew"}}`)
	})

	hash, err := c.PublishCast(context.Background(), "signer-1", "💩 hi", "0xparent")
	require.NoError(t, err)
	assert.Equal(t, "0xnew", hash)
}

func TestMentions_DropsInvalidCasts(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/farcaster/notifications", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"notifications":[
			{"type":"mention","cast":{"hash":"0x1","text":"@farcasturd @bob","parent_hash":"0xp","author":{"fid":10,"username":"alice"}}},
			{"type":"mention","cast":{"hash":"","text":"no hash","author":{"fid":10}}},
			{"type":"follows"},
			{"type":"reply","cast":{"hash":"0x2","text":"top","parent_hash":null,"author":{"fid":"11","username":"carl"}}}
		]}`)
	})

	casts, err := c.Mentions(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, casts, 2)
	assert.True(t, casts[0].IsReply())
	assert.Equal(t, int64(10), casts[0].Author.FID)
	assert.False(t, casts[1].IsReply())
	assert.Equal(t, int64(11), casts[1].Author.FID)
}

func TestDecodeCast(t *testing.T) {
	c, err := DecodeCast(json.RawMessage(`{"hash":"0xh","text":"hi","parent_url":"chain://x","author":{"fid":5,"username":"e"}}`))
	require.NoError(t, err)
	assert.True(t, c.IsReply())
	assert.Equal(t, "chain://x", c.ParentURL)

	_, err = DecodeCast(json.RawMessage(`{"hash":"0xh","text":"hi"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodeCast(json.RawMessage(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
