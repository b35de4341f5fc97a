package clientdata_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/corrscope/internal/clientdata"
	testingpkg "github.com/aristath/corrscope/internal/testing"
)

func TestRepository_StoreAndGetIfFresh(t *testing.T) {
	db := testingpkg.NewTestDB(t, "cache")
	repo := clientdata.NewRepository(db.Conn())

	payload := []byte(`{"data":{"technical":{"T_Correlation":[]}}}`)
	require.NoError(t, repo.Store(clientdata.TableCorrelationFeed, "https://feed", payload, time.Hour))

	got, err := repo.GetIfFresh(clientdata.TableCorrelationFeed, "https://feed")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))

	missing, err := repo.GetIfFresh(clientdata.TableCorrelationFeed, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_ExpiredIsNotServed(t *testing.T) {
	db := testingpkg.NewTestDB(t, "cache")
	repo := clientdata.NewRepository(db.Conn())

	require.NoError(t, repo.Store(clientdata.TableCorrelationFeed, "src", []byte(`{}`), -time.Minute))

	got, err := repo.GetIfFresh(clientdata.TableCorrelationFeed, "src")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepository_RejectsUnknownTableAndInvalidJSON(t *testing.T) {
	db := testingpkg.NewTestDB(t, "cache")
	repo := clientdata.NewRepository(db.Conn())

	assert.Error(t, repo.Store("companies; DROP TABLE x", "k", []byte(`{}`), time.Hour))
	assert.Error(t, repo.Store(clientdata.TableCorrelationFeed, "k", []byte(`not json`), time.Hour))

	_, err := repo.GetIfFresh("bogus", "k")
	assert.Error(t, err)
}

func TestRepository_DeleteAndDeleteExpired(t *testing.T) {
	db := testingpkg.NewTestDB(t, "cache")
	repo := clientdata.NewRepository(db.Conn())

	require.NoError(t, repo.Store(clientdata.TableCorrelationFeed, "stale", []byte(`{}`), -time.Hour))
	require.NoError(t, repo.Store(clientdata.TableCorrelationFeed, "fresh", []byte(`{}`), time.Hour))
	require.NoError(t, repo.Store(clientdata.TableCorrelationFeed, "doomed", []byte(`{}`), time.Hour))

	require.NoError(t, repo.Delete(clientdata.TableCorrelationFeed, "doomed"))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[clientdata.TableCorrelationFeed])

	got, err := repo.GetIfFresh(clientdata.TableCorrelationFeed, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
