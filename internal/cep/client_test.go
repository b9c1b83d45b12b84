package cep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider spins up an httptest server answering with the given status
// and body, and returns a Provider backed by it.
func fakeProvider(t *testing.T, name string, status int, body string, hits *atomic.Int64) Provider {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return Provider{Name: name, Endpoint: ts.URL + "/%s", Parse: parseBrasilAPI}
}

const goodBody = `{"street":"Avenida Paulista","neighborhood":"Bela Vista","city":"São Paulo","state":"SP"}`

func TestResolveFirstProviderWins(t *testing.T) {
	var first, second atomic.Int64
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusOK, goodBody, &first),
		fakeProvider(t, "B", http.StatusOK, goodBody, &second),
	}))

	res := c.Resolve(context.Background(), "01310100")
	require.False(t, res.Failed())
	assert.Equal(t, "Avenida Paulista", res.Address.Street)
	assert.Equal(t, "Bela Vista", res.Address.District)
	assert.Equal(t, "São Paulo", res.Address.City)
	assert.Equal(t, "SP", res.Address.State)

	assert.Equal(t, int64(1), first.Load())
	assert.Equal(t, int64(0), second.Load(), "success must short-circuit remaining providers")
}

func TestResolveFallsThroughOnServerError(t *testing.T) {
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusInternalServerError, "", nil),
		fakeProvider(t, "B", http.StatusOK, goodBody, nil),
	}))

	res := c.Resolve(context.Background(), "01310100")
	require.False(t, res.Failed())
	assert.Equal(t, "Avenida Paulista", res.Address.Street)
}

func TestResolveAllNotFound(t *testing.T) {
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusNotFound, "", nil),
		fakeProvider(t, "B", http.StatusNotFound, "", nil),
		fakeProvider(t, "C", http.StatusNotFound, "", nil),
	}))

	res := c.Resolve(context.Background(), "99999999")
	require.True(t, res.Failed())
	assert.Equal(t, "postal code not found", res.Err)
}

func TestResolveMixedFailuresBelowThreshold(t *testing.T) {
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusNotFound, "", nil),
		fakeProvider(t, "B", http.StatusBadGateway, "", nil),
	}))

	res := c.Resolve(context.Background(), "99999999")
	require.True(t, res.Failed())
	assert.Contains(t, res.Err, "all providers failed")
	assert.Contains(t, res.Err, "B")
	assert.NotContains(t, res.Err, "(A:", "not-found answers are tallied, not listed as diagnostics")
}

func TestResolveViaCEPErrorFlagCountsAsNotFound(t *testing.T) {
	viacep := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"erro": true}`))
	}))
	t.Cleanup(viacep.Close)

	c := NewClient(WithProviders([]Provider{
		{Name: "ViaCEP", Endpoint: viacep.URL + "/%s", Parse: parseViaCEP},
		fakeProvider(t, "B", http.StatusNotFound, "", nil),
	}))

	res := c.Resolve(context.Background(), "99999999")
	require.True(t, res.Failed())
	assert.Equal(t, "postal code not found", res.Err)
}

func TestResolveParseFailureIsDiagnostic(t *testing.T) {
	c := NewClient(
		WithProviders([]Provider{
			fakeProvider(t, "A", http.StatusOK, "not json at all", nil),
		}),
		WithNotFoundThreshold(2),
	)

	res := c.Resolve(context.Background(), "01310100")
	require.True(t, res.Failed())
	assert.Contains(t, res.Err, "all providers failed")
	assert.Contains(t, res.Err, "(A:")
}

func TestResolveRejectsNonEightDigitCodes(t *testing.T) {
	var hits atomic.Int64
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusOK, goodBody, &hits),
	}))

	for _, code := range []string{"", "123", "0131010a", "013101000"} {
		res := c.Resolve(context.Background(), code)
		assert.True(t, res.Failed(), "code %q", code)
	}
	assert.Equal(t, int64(0), hits.Load(), "ineligible codes must not reach providers")
}

func TestPrewarmResolvesEachCodeOnce(t *testing.T) {
	var hits atomic.Int64
	c := NewClient(
		WithProviders([]Provider{fakeProvider(t, "A", http.StatusOK, goodBody, &hits)}),
		WithMaxConcurrent(2),
	)

	codes := []string{"01310100", "20040030", "70040010"}
	results := c.Prewarm(context.Background(), codes)

	require.Len(t, results, 3)
	for _, code := range codes {
		assert.False(t, results[code].Failed(), code)
	}
	assert.Equal(t, int64(3), hits.Load(), "one call per distinct code")
}

func TestPrewarmEmpty(t *testing.T) {
	c := NewClient()
	assert.Empty(t, c.Prewarm(context.Background(), nil))
}

func TestPrewarmKeepsFailures(t *testing.T) {
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusNotFound, "", nil),
		fakeProvider(t, "B", http.StatusNotFound, "", nil),
	}))

	results := c.Prewarm(context.Background(), []string{"99999999"})
	require.Len(t, results, 1)
	assert.Equal(t, "postal code not found", results["99999999"].Err)
}

func TestPrewarmCachesOverLongCodeFailure(t *testing.T) {
	var hits atomic.Int64
	c := NewClient(WithProviders([]Provider{
		fakeProvider(t, "A", http.StatusOK, goodBody, &hits),
	}))

	results := c.Prewarm(context.Background(), []string{"123456789"})
	require.Len(t, results, 1)
	assert.True(t, results["123456789"].Failed())
	assert.Contains(t, results["123456789"].Err, "not an 8-digit code")
	assert.Equal(t, int64(0), hits.Load(), "invalid-length codes fail before any provider call")
}

func TestNormalize(t *testing.T) {
	c := NewClient()

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "formatted", raw: "01310-100", want: "01310100", ok: true},
		{name: "bare", raw: "01310100", want: "01310100", ok: true},
		{name: "7 digits padded", raw: "1234567", want: "01234567", ok: true},
		{name: "6 digits ineligible", raw: "123456", ok: false},
		{name: "9 digits pass through", raw: "123456789", want: "123456789", ok: true},
		{name: "empty", raw: "", ok: false},
		{name: "whitespace and mask", raw: " 01310-100 ", want: "01310100", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Normalize(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseAdapters(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		parse func([]byte) (Address, error)
		want  Address
	}{
		{
			name:  "brasilapi",
			body:  goodBody,
			parse: parseBrasilAPI,
			want:  Address{Street: "Avenida Paulista", District: "Bela Vista", City: "São Paulo", State: "SP"},
		},
		{
			name:  "viacep",
			body:  `{"logradouro":"Rua A","bairro":"Centro","localidade":"Recife","uf":"PE"}`,
			parse: parseViaCEP,
			want:  Address{Street: "Rua A", District: "Centro", City: "Recife", State: "PE"},
		},
		{
			name:  "postmon",
			body:  `{"logradouro":"Rua B","bairro":"Sul","cidade":"Natal","estado":"RN"}`,
			parse: parsePostmon,
			want:  Address{Street: "Rua B", District: "Sul", City: "Natal", State: "RN"},
		},
		{
			name:  "brasilaberto",
			body:  `{"result":{"street":"Rua C","district":"Norte","city":"Manaus","stateShortname":"AM"}}`,
			parse: parseBrasilAberto,
			want:  Address{Street: "Rua C", District: "Norte", City: "Manaus", State: "AM"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseViaCEPStringErrorFlag(t *testing.T) {
	_, err := parseViaCEP([]byte(`{"erro": "true"}`))
	assert.ErrorIs(t, err, errProviderNotFound)
}
