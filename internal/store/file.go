package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"streakline/internal/domain"
)

// Codec encodes the record set for a FileStore.
type Codec interface {
	Name() string
	Marshal(records []domain.Challenge) ([]byte, error)
	Unmarshal(data []byte, records *[]domain.Challenge) error
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(records []domain.Challenge) ([]byte, error) {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, records *[]domain.Challenge) error {
	return json.Unmarshal(data, records)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(records []domain.Challenge) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Unmarshal(data []byte, records *[]domain.Challenge) error {
	return yaml.Unmarshal(data, records)
}

// FileStore keeps the whole set in one human-readable file.
type FileStore struct {
	Path  string
	Codec Codec
	opts  Options
}

func NewJSONFile(path string, opts Options) *FileStore {
	return &FileStore{Path: path, Codec: jsonCodec{}, opts: opts}
}

func NewYAMLFile(path string, opts Options) *FileStore {
	return &FileStore{Path: path, Codec: yamlCodec{}, opts: opts}
}

func (s *FileStore) Load(ctx context.Context) ([]domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Challenge{}, nil
		}
		return nil, &IOError{Op: "read", Path: s.Path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Challenge{}, nil
	}
	var records []domain.Challenge
	if err := s.Codec.Unmarshal(data, &records); err != nil {
		return s.reset(ctx, fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err))
	}
	return normalize(records), nil
}

// reset moves a corrupt file aside and starts over with an empty set.
func (s *FileStore) reset(ctx context.Context, cause error) ([]domain.Challenge, error) {
	aside := s.Path + ".corrupt"
	s.opts.logger().Printf("WARNING: %s store %s is unreadable (%v); moved to %s, starting with an empty list", s.Codec.Name(), s.Path, cause, aside)
	if err := os.Rename(s.Path, aside); err != nil {
		s.opts.logger().Printf("WARNING: could not keep corrupt store aside: %v", err)
	}
	if err := s.Save(ctx, nil); err != nil {
		return nil, err
	}
	if s.opts.OnReset != nil {
		s.opts.OnReset()
	}
	return []domain.Challenge{}, nil
}

// Save writes to a temp file and renames it over the target, so a failed
// write leaves the previous content in place.
func (s *FileStore) Save(ctx context.Context, records []domain.Challenge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.Codec.Marshal(normalize(records))
	if err != nil {
		return &IOError{Op: "encode", Path: s.Path, Err: err}
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &IOError{Op: "sync", Path: s.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: s.Path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return &IOError{Op: "rename", Path: s.Path, Err: err}
	}
	return nil
}

// normalize makes empty collections encode as [] rather than null.
func normalize(records []domain.Challenge) []domain.Challenge {
	if records == nil {
		return []domain.Challenge{}
	}
	for i := range records {
		if records[i].ProgressLog == nil {
			records[i].ProgressLog = []domain.ProgressEntry{}
		}
	}
	return records
}
