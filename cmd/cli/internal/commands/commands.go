package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/parking/cmd/cli/internal/localstore"
	"github.com/wolfeidau/parking/internal/client"
)

type Globals struct {
	Debug      bool
	Version    string
	Server     string
	StorageDir string

	// Out receives command output, os.Stdout when nil
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) store() (*localstore.Store, error) {
	store, err := localstore.NewStore(g.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	return store, nil
}

func (g *Globals) client() *client.Client {
	return client.New(client.Config{
		ServerURL: g.Server,
		Timeout:   30 * time.Second,
		Debug:     g.Debug,
	})
}
