package infopoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHttpApi(t *testing.T) {
	_, baseUrl, service, cleanup := setupService(t)
	defer cleanup()

	mux := http.NewServeMux()
	service.Handle(mux)
	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	var account Account
	{
		body, err := json.Marshal(RegisterAccountRequest{
			Name:     "Erika",
			BaseUrl:  baseUrl,
			Username: "student",
			Password: "geheim",
		})
		if err != nil {
			t.Fatal(err)
		}
		res, err := http.Post(api.URL+"/api/v1/accounts", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)

		err = json.NewDecoder(res.Body).Decode(&account)
		if err != nil {
			t.Fatal(err)
		}
		require.NotEmpty(t, account.Id)
	}
	{
		res, err := http.Post(api.URL+"/api/v1/accounts", "application/json", strings.NewReader(`{"name":"x"}`))
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
	}
	{
		res, err := http.Post(fmt.Sprintf("%s/api/v1/accounts/%s/refresh", api.URL, account.Id), "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	{
		res, err := http.Get(fmt.Sprintf("%s/api/v1/accounts/%s/snapshot", api.URL, account.Id))
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var status SnapshotStatus
		err = json.NewDecoder(res.Body).Decode(&status)
		if err != nil {
			t.Fatal(err)
		}
		require.NotNil(t, status.Snapshot)
		require.Equal(t, 2.5, *status.Snapshot.Subjects["Mathematik"].Average)

		// credentials never leave the service
		raw, err := json.Marshal(status)
		if err != nil {
			t.Fatal(err)
		}
		require.NotContains(t, string(raw), "geheim")
	}
	{
		res, err := http.Get(fmt.Sprintf("%s/api/v1/accounts/%s/averages", api.URL, account.Id))
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	{
		res, err := http.Get(api.URL + "/api/v1/accounts/nope/snapshot")
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	}
	{
		req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete,
			fmt.Sprintf("%s/api/v1/accounts/%s", api.URL, account.Id), nil)
		if err != nil {
			t.Fatal(err)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		require.Equal(t, http.StatusNoContent, res.StatusCode)
		require.Len(t, service.Accounts(), 0)
	}
}
