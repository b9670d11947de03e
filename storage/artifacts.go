package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/srgchrksv/pdfpodcaster/models"
)

var (
	ErrNotFound = errors.New("artifact not found")
	ErrExists   = errors.New("artifact id already taken")
)

// ArtifactColumns is the fixed row layout of the podcasts container.
var ArtifactColumns = []Column{
	{Name: "id", Type: "INTEGER"},
	{Name: "ocrResponse", Type: "STRING"},
	{Name: "audioScript", Type: "STRING"},
	{Name: "audioFiles", Type: "STRING"},
}

// ArtifactStore keeps one row per completed pipeline run.
type ArtifactStore struct {
	db        *GridDB
	container string
	log       zerolog.Logger

	mu    sync.Mutex
	ready bool
}

func NewArtifactStore(db *GridDB, container string, log zerolog.Logger) *ArtifactStore {
	return &ArtifactStore{db: db, container: container, log: log}
}

// EnsureContainer creates the container when the info probe reports it
// missing. Check and create are not atomic across processes.
func (s *ArtifactStore) EnsureContainer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.db.ContainerExists(ctx, s.container)
	if err != nil {
		return err
	}
	if exists {
		s.log.Debug().Str("container", s.container).Msg("container already exists")
	} else {
		if err := s.db.CreateContainer(ctx, s.container, ArtifactColumns); err != nil {
			return err
		}
		s.log.Info().Str("container", s.container).Msg("container created")
	}
	s.ready = true
	return nil
}

// Insert writes a new row. Rows are never overwritten: the row-key PUT would
// replace an existing id, so a taken id fails with ErrExists.
func (s *ArtifactStore) Insert(ctx context.Context, record models.ArtifactRecord) error {
	if err := s.EnsureContainer(ctx); err != nil {
		return err
	}
	_, err := s.Get(ctx, record.ID)
	if err == nil {
		return &models.StorageError{Message: fmt.Sprintf("insert artifact %d", record.ID), Err: ErrExists}
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	row := []any{record.ID, record.OCRResponse, record.AudioScript, record.AudioFiles}
	return s.db.PutRows(ctx, s.container, [][]any{row})
}

// Get reads one row back by id.
func (s *ArtifactStore) Get(ctx context.Context, id int64) (models.ArtifactRecord, error) {
	results, err := s.db.Query(ctx, []SQLQuery{{
		Type: "sql-select",
		Stmt: fmt.Sprintf("SELECT id, ocrResponse, audioScript, audioFiles FROM %s WHERE id = %d", s.container, id),
	}})
	if err != nil {
		return models.ArtifactRecord{}, err
	}
	if len(results) == 0 || len(results[0].Results) == 0 {
		return models.ArtifactRecord{}, ErrNotFound
	}
	return decodeArtifactRow(results[0].Results[0])
}

func decodeArtifactRow(row []any) (models.ArtifactRecord, error) {
	if len(row) != len(ArtifactColumns) {
		return models.ArtifactRecord{}, &models.StorageError{Message: fmt.Sprintf("row has %d columns, want %d", len(row), len(ArtifactColumns))}
	}
	id, ok := row[0].(float64)
	if !ok {
		return models.ArtifactRecord{}, &models.StorageError{Message: fmt.Sprintf("id column has type %T", row[0])}
	}
	var fields [3]string
	for i := range fields {
		s, ok := row[i+1].(string)
		if !ok {
			return models.ArtifactRecord{}, &models.StorageError{Message: fmt.Sprintf("column %s has type %T", ArtifactColumns[i+1].Name, row[i+1])}
		}
		fields[i] = s
	}
	return models.ArtifactRecord{
		ID:          int64(id),
		OCRResponse: fields[0],
		AudioScript: fields[1],
		AudioFiles:  fields[2],
	}, nil
}
