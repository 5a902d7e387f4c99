package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/evel/core"
)

const sampleMetadata = `{
  "uuid": "d8e02d56-2648-49a3-bf97-6be8f1204f38",
  "name": "vnf-test-1",
  "availability_zone": "nova",
  "meta": {"role": "webservers"}
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    Identity
		wantErr error
	}{
		{
			name: "valid document",
			doc:  sampleMetadata,
			want: Identity{UUID: "d8e02d56-2648-49a3-bf97-6be8f1204f38", Name: "vnf-test-1"},
		},
		{name: "not json", doc: "<html>", wantErr: core.ErrBadJSONFormat},
		{name: "missing uuid", doc: `{"name":"x"}`, wantErr: core.ErrJSONKeyNotFound},
		{name: "missing name", doc: `{"uuid":"x"}`, wantErr: core.ErrJSONKeyNotFound},
		{name: "empty uuid", doc: `{"uuid":"","name":"x"}`, wantErr: core.ErrBadMetadata},
		{name: "numeric name", doc: `{"uuid":"x","name":42}`, wantErr: core.ErrBadMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.doc))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/openstack/latest/meta_data.json", r.URL.Path)
		_, _ = w.Write([]byte(sampleMetadata))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/openstack/latest/meta_data.json", time.Second)
	id, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vnf-test-1", id.Name)
}

func TestClientFetchErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Second).Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrNoMetadata)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewClient(url, 200*time.Millisecond).Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrNoMetadata)
		assert.Equal(t, core.CodeNoMetadata, core.CodeOf(err))
	})

	t.Run("bad body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"uuid":`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Second).Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrBadJSONFormat)
	})
}

func TestLocalIsStable(t *testing.T) {
	a := Local()
	b := Local()
	assert.NotEmpty(t, a.UUID)
	assert.NotEmpty(t, a.Name)
	assert.Equal(t, a, b)
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleMetadata))
	}))
	defer server.Close()

	t.Run("metadata enabled", func(t *testing.T) {
		id, err := Resolve(context.Background(),
			core.MetadataConfig{Enabled: true, URL: server.URL, Timeout: time.Second},
			core.SourceConfig{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "d8e02d56-2648-49a3-bf97-6be8f1204f38", id.UUID)
	})

	t.Run("overrides win", func(t *testing.T) {
		id, err := Resolve(context.Background(),
			core.MetadataConfig{Enabled: true, URL: server.URL, Timeout: time.Second},
			core.SourceConfig{ReportingEntityName: "override"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "override", id.Name)
		assert.Equal(t, "d8e02d56-2648-49a3-bf97-6be8f1204f38", id.UUID)
	})

	t.Run("disabled uses local identity", func(t *testing.T) {
		id, err := Resolve(context.Background(), core.MetadataConfig{}, core.SourceConfig{}, nil)
		require.NoError(t, err)
		assert.Equal(t, Local(), id)
	})

	t.Run("enabled but failing", func(t *testing.T) {
		_, err := Resolve(context.Background(),
			core.MetadataConfig{Enabled: true, URL: server.URL + "/missing\x7f", Timeout: time.Second},
			core.SourceConfig{}, nil)
		assert.True(t, core.IsMetadataError(err))
	})
}
