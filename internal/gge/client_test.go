package gge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllianceByID(t *testing.T) {
	var gotPath, gotServer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotServer = r.Header.Get("gge-server")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"alliance_id": 530061,
			"alliance_name": "The Order",
			"players": [
				{"player_id": 777001, "player_name": "Knight", "alliance_rank": 3, "level": 70},
				{"player_id": 777002, "player_name": "Squire", "alliance_rank": 9}
			]
		}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, ServerCode: "WORLD2", MaxRetries: 1})
	resp, err := client.AllianceByID(context.Background(), 530061)
	require.NoError(t, err)

	assert.Equal(t, "/alliances/id/530061", gotPath)
	assert.Equal(t, "WORLD2", gotServer)
	assert.Equal(t, int64(530061), resp.AllianceID)
	assert.Equal(t, "The Order", resp.AllianceName)
	require.Len(t, resp.Players, 2)
	assert.Equal(t, "Knight", resp.Players[0].PlayerName)
	require.NotNil(t, resp.Players[0].Level)
	assert.Equal(t, 70, *resp.Players[0].Level)
	assert.Nil(t, resp.Players[1].Level)
}

func TestAllianceByID_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"alliance_id": 1, "alliance_name": "x", "players": []}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, ServerCode: "WORLD2", MaxRetries: 3})
	resp, err := client.AllianceByID(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(1), resp.AllianceID)
}

func TestAllianceByID_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, ServerCode: "WORLD2", MaxRetries: 2})
	_, err := client.AllianceByID(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
