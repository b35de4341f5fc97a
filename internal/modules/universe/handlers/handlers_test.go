package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/modules/universe"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

type stubDirectory struct {
	dir universe.Directory
	err error
}

func (s stubDirectory) Directory() (universe.Directory, error) { return s.dir, s.err }

func newRouter(t *testing.T, directory DirectorySource) (chi.Router, *universe.CompanyRepository) {
	t.Helper()
	db := testingpkg.NewTestDB(t, "universe")
	repo := universe.NewCompanyRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.UpsertAll(testingpkg.NewCompanyFixtures()))

	r := chi.NewRouter()
	NewUniverseHandlers(repo, directory, zerolog.Nop()).RegisterRoutes(r)
	return r, repo
}

func serve(r chi.Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandleGetCompanies(t *testing.T) {
	r, _ := newRouter(t, stubDirectory{})

	rec := serve(r, http.MethodGet, "/universe/companies")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []universe.Company `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	assert.Equal(t, "AAPL", body.Data[0].Ticker)

	rec = serve(r, http.MethodGet, "/universe/companies?sector=Technology")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "MSFT", body.Data[1].Ticker)

	rec = serve(r, http.MethodGet, "/universe/companies?sector=Utilities")
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandleGetCompany(t *testing.T) {
	r, _ := newRouter(t, stubDirectory{})

	rec := serve(r, http.MethodGet, "/universe/companies/xom")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Exxon Mobil Corporation")

	rec = serve(r, http.MethodGet, "/universe/companies/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSyncDirectory(t *testing.T) {
	dir := universe.NewDirectory(testingpkg.NewCompanyFixtures())
	r, _ := newRouter(t, stubDirectory{dir: dir})

	rec := serve(r, http.MethodPost, "/universe/sync")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Companies    int            `json:"companies"`
			Sectors      []string       `json:"sectors"`
			SectorCounts map[string]int `json:"sector_counts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data.Companies)
	assert.Equal(t, []string{"Energy", "Healthcare", "Technology"}, body.Data.Sectors)
	assert.Equal(t, 2, body.Data.SectorCounts["Technology"])

	r, _ = newRouter(t, stubDirectory{err: errors.New("file missing")})
	rec = serve(r, http.MethodPost, "/universe/sync")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
