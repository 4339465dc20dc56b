package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blues/qfround/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinGateway(t *testing.T) {
	cases := map[string]string{
		"/ipfs/QmSchema/meta.json":  "https://ipfs.kleros.io/ipfs/QmSchema/meta.json",
		"QmImage":                   "https://ipfs.kleros.io/ipfs/QmImage",
		"ipfs://QmImage":            "https://ipfs.kleros.io/ipfs/QmImage",
		"https://example.org/x.png": "https://example.org/x.png",
	}
	for ref, want := range cases {
		assert.Equal(t, want, JoinGateway("https://ipfs.kleros.io/", ref), ref)
	}
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"metadata": {"columns": [{"label": "Name", "type": "text"}]}}`))
	}))
	defer srv.Close()

	client := NewClient(config.DocstoreConfig{Timeout: 5})

	var doc struct {
		Metadata struct {
			Columns []struct {
				Label string `json:"label"`
			} `json:"columns"`
		} `json:"metadata"`
	}
	require.NoError(t, client.FetchJSON(context.Background(), JoinGateway(srv.URL, "/ipfs/ok"), &doc))
	require.Len(t, doc.Metadata.Columns, 1)
	assert.Equal(t, "Name", doc.Metadata.Columns[0].Label)

	err := client.FetchJSON(context.Background(), JoinGateway(srv.URL, "/ipfs/missing"), &doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPinJSON(t *testing.T) {
	var received pinRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(pinResponse{IpfsHash: "QmTally", PinSize: 12})
	}))
	defer srv.Close()

	client := NewClient(config.DocstoreConfig{PinURL: srv.URL, PinJWT: "secret"})
	hash, err := client.PinJSON(context.Background(), "tally-round-1", map[string]string{"provider": "maci"})
	require.NoError(t, err)
	assert.Equal(t, "QmTally", hash)
	assert.Equal(t, "tally-round-1", received.PinataMetadata.Name)
	assert.Equal(t, map[string]interface{}{"provider": "maci"}, received.PinataContent)
}

func TestPinJSONFailures(t *testing.T) {
	_, err := NewClient(config.DocstoreConfig{}).PinJSON(context.Background(), "x", struct{}{})
	require.Error(t, err)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer empty.Close()
	_, err = NewClient(config.DocstoreConfig{PinURL: empty.URL}).PinJSON(context.Background(), "x", struct{}{})
	assert.ErrorIs(t, err, ErrNotPinned)

	denied := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad jwt", http.StatusUnauthorized)
	}))
	defer denied.Close()
	_, err = NewClient(config.DocstoreConfig{PinURL: denied.URL}).PinJSON(context.Background(), "x", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
