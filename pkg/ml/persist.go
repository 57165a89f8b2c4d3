package ml

import (
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"voiceauth-server/pkg/errors"
)

// SaveArtifact serializes a model artifact to disk as msgpack. The write
// goes through a temp file and rename so a reader never observes a partial
// artifact.
func SaveArtifact(path string, v interface{}) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode artifact").WithField("path", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create artifact directory").WithField("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp artifact").WithField("path", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to write artifact").WithField("path", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to close artifact").WithField("path", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "failed to move artifact into place").WithField("path", path)
	}
	return nil
}

// LoadArtifact deserializes a model artifact from disk into v.
func LoadArtifact(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read artifact").WithField("path", path)
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "failed to decode artifact").WithField("path", path)
	}
	return nil
}

// ArtifactExists reports whether an artifact file exists on disk.
func ArtifactExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
