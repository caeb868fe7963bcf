package cli

import (
	"errors"
	"path/filepath"

	"github.com/idilsaglam/cloudtodo/internal/config"
	"github.com/idilsaglam/cloudtodo/internal/store/blobfs"
	"github.com/idilsaglam/cloudtodo/internal/store/httpstore"
	"github.com/idilsaglam/cloudtodo/internal/store/jsonstore"
	"github.com/idilsaglam/cloudtodo/internal/todosync"
)

var errNoKey = errors.New("no API key. Set TODO_API_KEY or run `todo auth login`")

// openSync builds a synchronizer over the configured backend.
func openSync(cfg *config.Client, opts ...todosync.Option) (*todosync.Synchronizer, error) {
	if cfg.Backend == config.BackendLocal {
		blobs, err := blobfs.New(filepath.Join(cfg.Local.Dir, "images"), "")
		if err != nil {
			return nil, err
		}
		return todosync.New(jsonstore.New(cfg.Local.Dir), blobs, opts...), nil
	}

	ti, err := GetToken(cfg.API.Key)
	if err != nil {
		return nil, err
	}
	if ti == nil || ti.Token == "" {
		return nil, errNoKey
	}
	c, err := httpstore.New(httpstore.Options{
		URL:     cfg.API.URL,
		Key:     ti.Token,
		Table:   cfg.API.Table,
		Bucket:  cfg.API.Bucket,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return todosync.New(c, c, opts...), nil
}
