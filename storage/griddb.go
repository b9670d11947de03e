package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/srgchrksv/pdfpodcaster/models"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SQLQuery is one statement for the /sql/dml/query endpoint.
type SQLQuery struct {
	Type string `json:"type"`
	Stmt string `json:"stmt"`
}

// SQLResult is the answer to one SQLQuery.
type SQLResult struct {
	Columns []Column `json:"columns"`
	Results [][]any  `json:"results"`
}

// GridDB is a client for the GridDB Web API. Credentials are encoded once.
type GridDB struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewGridDB(baseURL, username, password string, httpClient *http.Client) *GridDB {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GridDB{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		authToken:  base64.StdEncoding.EncodeToString([]byte(username + ":" + password)),
		httpClient: httpClient,
	}
}

// ContainerExists probes /containers/{name}/info. Only 404 means absent.
func (g *GridDB) ContainerExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/containers/"+url.PathEscape(name)+"/info", nil)
	if err != nil {
		return false, &models.StorageError{Message: "check container", Err: err}
	}
	req.Header.Set("Authorization", "Basic "+g.authToken)
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, &models.StorageError{Message: "check container", Err: err}
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(resp.Body)
		return false, &models.StorageError{Message: "check container", Status: resp.StatusCode, Body: string(body)}
	}
	return true, nil
}

// CreateContainer creates a collection container keyed by its first column.
func (g *GridDB) CreateContainer(ctx context.Context, name string, columns []Column) error {
	payload := struct {
		ContainerName string   `json:"container_name"`
		ContainerType string   `json:"container_type"`
		RowKey        bool     `json:"rowkey"`
		Columns       []Column `json:"columns"`
	}{name, "COLLECTION", true, columns}
	return g.do(ctx, http.MethodPost, "/containers", payload, nil, "create container")
}

// PutRows appends rows to a container.
func (g *GridDB) PutRows(ctx context.Context, name string, rows [][]any) error {
	return g.do(ctx, http.MethodPut, "/containers/"+url.PathEscape(name)+"/rows", rows, nil, "insert rows")
}

// Query runs SQL statements and returns one result per statement.
func (g *GridDB) Query(ctx context.Context, queries []SQLQuery) ([]SQLResult, error) {
	if len(queries) == 0 {
		return nil, &models.StorageError{Message: "queries must be a non-empty list of SQL statements"}
	}
	var out []SQLResult
	if err := g.do(ctx, http.MethodPost, "/sql/dml/query", queries, &out, "query"); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GridDB) do(ctx context.Context, method, path string, payload, out any, op string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &models.StorageError{Message: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &models.StorageError{Message: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", "Basic "+g.authToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &models.StorageError{Message: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.StorageError{Message: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 400 {
		return &models.StorageError{Message: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &models.StorageError{Message: fmt.Sprintf("%s: decode response", op), Status: resp.StatusCode, Body: string(respBody), Err: err}
	}
	return nil
}
